package errs

import "errors"

var (
	ErrEmptyImage       = errors.New("no image data provided")
	ErrUploadFailed     = errors.New("image upload failed")
	ErrGenerationFailed = errors.New("generation task could not be started")
	ErrPollingFailed    = errors.New("status polling failed")
	ErrNoResult         = errors.New("task finished but produced no image")
	ErrRemoteTask       = errors.New("remote task failed")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidReview    = errors.New("invalid review data (name, comment and rating 1-5 required)")
)
