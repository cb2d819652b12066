package models

type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusRunning   TaskStatus = "RUNNING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusError     TaskStatus = "ERROR"
	StatusUnknown   TaskStatus = "UNKNOWN"
)

// Task tracks one generation request from submission to terminal status.
type Task struct {
	TaskID   string     `json:"taskId"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
}

type Review struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
	Date    string `json:"date"`
}

type GenerateRequest struct {
	ImageID string `json:"imageId"`
}

type TaskRequest struct {
	TaskID string `json:"taskId"`
}

type SaveImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

type AddReviewRequest struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}
