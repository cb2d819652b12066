package app

import (
	"context"
	"encoding/json"
	"io"

	"polaroid/internal/app/gateway"
	"polaroid/internal/app/models"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock.go

// Gateway is the remote image-generation service consumed over HTTP.
type Gateway interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
	Run(ctx context.Context, fileName string) (*gateway.RunResult, error)
	Status(ctx context.Context, taskID string) (*gateway.StatusResult, error)
	Outputs(ctx context.Context, taskID string) ([]gateway.OutputItem, error)
	Ping(ctx context.Context) (json.RawMessage, error)
}

type GalleryRepository interface {
	ListImages(ctx context.Context) ([]string, error)
	SaveImage(ctx context.Context, imageURL string) (int, error)
	DeleteImage(ctx context.Context, imageURL string) (bool, error)
}

type ReviewRepository interface {
	ListReviews(ctx context.Context) ([]models.Review, error)
	AddReview(ctx context.Context, review models.Review) error
}

// Storage is the durable persistence collaborator, selected once at startup.
type Storage interface {
	GalleryRepository
	ReviewRepository
	Close() error
}

type TaskUsecase interface {
	ProcessImage(ctx context.Context, fileName string, data []byte, onProgress func(int)) (string, error)
	UploadImage(ctx context.Context, fileName string, data []byte) (string, error)
	GenerateImage(ctx context.Context, imageID string) (string, error)
	CheckStatus(ctx context.Context, taskID string) (*models.Task, error)
	GetTaskResult(ctx context.Context, taskID string) ([]string, error)
	PingGateway(ctx context.Context) (json.RawMessage, error)
}

type GalleryUsecase interface {
	ListImages(ctx context.Context) ([]string, error)
	SaveImage(ctx context.Context, imageURL string) (int, error)
	DeleteImage(ctx context.Context, imageURL string) (bool, error)
	Archive(ctx context.Context, w io.Writer) (int, error)
}

type ReviewUsecase interface {
	ListReviews(ctx context.Context) ([]models.Review, error)
	AddReview(ctx context.Context, req models.AddReviewRequest) (*models.Review, error)
}
