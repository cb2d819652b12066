package validate

import (
	"strings"

	"polaroid/internal/app/models"
	"polaroid/internal/utils/errs"
)

const (
	minRating = 1
	maxRating = 5
)

// imageTypeHints is matched as substrings because the gateway does not
// guarantee a strict format for its fileType field.
var imageTypeHints = []string{"png", "jpg", "jpeg"}

// IsImageOutput reports whether a gateway output looks like a displayable
// image. An empty file type is accepted.
func IsImageOutput(fileURL, fileType string) bool {
	if fileURL == "" {
		return false
	}
	if fileType == "" {
		return true
	}

	lowered := strings.ToLower(fileType)
	for _, hint := range imageTypeHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}

	return false
}

func ValidateReview(req models.AddReviewRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Comment) == "" {
		return errs.ErrInvalidReview
	}
	if req.Rating < minRating || req.Rating > maxRating {
		return errs.ErrInvalidReview
	}

	return nil
}
