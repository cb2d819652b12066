package report

import (
	"strings"

	"polaroid/internal/app/models"
)

type ErrorCategory string

const (
	CategoryServerSide   ErrorCategory = "server_side"
	CategoryTimeout      ErrorCategory = "timeout"
	CategoryInvalidInput ErrorCategory = "invalid_input"
	CategoryGeneric      ErrorCategory = "generic"
)

// ToUserProgress maps an internal task state to the percentage shown to the
// user. A completed task always reads 100 regardless of the reported value.
func ToUserProgress(status models.TaskStatus, progress int) int {
	if status == models.StatusCompleted {
		return 100
	}
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// Categorize classifies a gateway error message by substring. The gateway has
// no documented error vocabulary, so this is a best-effort placeholder that a
// structured error code should replace if one ever appears.
func Categorize(msg string) ErrorCategory {
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "server side"):
		return CategoryServerSide
	case strings.Contains(lowered, "timeout"):
		return CategoryTimeout
	case strings.Contains(lowered, "invalid"):
		return CategoryInvalidInput
	default:
		return CategoryGeneric
	}
}

func UserMessage(category ErrorCategory) string {
	switch category {
	case CategoryServerSide:
		return "Image processing failed. The server ran into a problem, please try again later."
	case CategoryTimeout:
		return "Image processing failed. Processing timed out, try a smaller picture or retry later."
	case CategoryInvalidInput:
		return "Image processing failed. Your picture may not meet the processing requirements, try a different one."
	default:
		return "Image processing failed. Try a different picture or retry later."
	}
}
