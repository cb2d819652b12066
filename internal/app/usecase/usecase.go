package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"polaroid/internal/app"
	"polaroid/internal/app/models"
	"polaroid/internal/imaging"
	"polaroid/internal/utils/errs"
	"polaroid/internal/utils/logger"
	"polaroid/internal/utils/report"
	"polaroid/internal/utils/validate"
)

const recordTimeout = 10 * time.Second

type TaskUsecase struct {
	gateway           app.Gateway
	galleryRepository app.GalleryRepository
	poller            *Poller

	mu           sync.Mutex
	session      uint64
	cancelActive context.CancelFunc
}

func CreateTaskUsecase(gw app.Gateway, galleryRepository app.GalleryRepository, poller *Poller) *TaskUsecase {
	return &TaskUsecase{
		gateway:           gw,
		galleryRepository: galleryRepository,
		poller:            poller,
	}
}

// ProcessImage runs the whole workflow for one picture: compress, upload,
// submit generation, poll to a terminal state and fetch the resulting image
// URL. The completed URL is recorded to the gallery in the background; a
// recording failure never fails the task.
func (u *TaskUsecase) ProcessImage(ctx context.Context, fileName string, data []byte, onProgress func(int)) (string, error) {
	const funcName = "TaskUsecase.ProcessImage"
	logger.Info("starting image workflow",
		zap.String("function", funcName),
		zap.String("file_name", fileName),
		zap.Int("size_bytes", len(data)),
	)

	if len(data) == 0 {
		return "", errs.ErrEmptyImage
	}

	compressed, err := imaging.Compress(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidRequest, err)
	}

	ctx, done := u.beginSession(ctx)
	defer done()

	fileID, err := u.gateway.Upload(ctx, fileName, compressed)
	if err != nil {
		logger.Error("upload step failed",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return "", err
	}

	run, err := u.gateway.Run(ctx, fileID)
	if err != nil {
		logger.Error("generation step failed",
			zap.String("function", funcName),
			zap.String("file_id", fileID),
			zap.Error(err),
		)
		return "", err
	}

	task := &models.Task{TaskID: run.TaskID, Status: models.StatusPending}
	if err := u.poller.Wait(ctx, task, onProgress); err != nil {
		if errors.Is(err, errs.ErrRemoteTask) {
			category := report.Categorize(err.Error())
			logger.Warn("remote task failed",
				zap.String("function", funcName),
				zap.String("task_id", task.TaskID),
				zap.String("category", string(category)),
				zap.Error(err),
			)
			return "", fmt.Errorf("%w: %s", errs.ErrRemoteTask, report.UserMessage(category))
		}
		return "", err
	}

	resultURL, err := u.firstImageResult(ctx, task.TaskID)
	if err != nil {
		return "", err
	}

	go u.recordResult(resultURL)

	logger.Info("image workflow finished",
		zap.String("function", funcName),
		zap.String("task_id", task.TaskID),
		zap.String("result_url", resultURL),
	)

	return resultURL, nil
}

// beginSession enforces a single in-flight workflow: starting a new one
// cancels the poller of the previous one.
func (u *TaskUsecase) beginSession(ctx context.Context) (context.Context, context.CancelFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cancelActive != nil {
		u.cancelActive()
	}

	ctx, cancel := context.WithCancel(ctx)
	u.session++
	session := u.session
	u.cancelActive = cancel

	return ctx, func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		cancel()
		// A stale cleanup must not clear the handle of a newer session.
		if u.session == session {
			u.cancelActive = nil
		}
	}
}

func (u *TaskUsecase) firstImageResult(ctx context.Context, taskID string) (string, error) {
	const funcName = "TaskUsecase.firstImageResult"

	items, err := u.gateway.Outputs(ctx, taskID)
	if err != nil {
		logger.Error("failed to fetch task outputs",
			zap.String("function", funcName),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return "", fmt.Errorf("fetch task outputs: %w", err)
	}

	for _, item := range items {
		if validate.IsImageOutput(item.FileURL, item.FileType) {
			return item.FileURL, nil
		}
	}

	logger.Warn("no image outputs for task",
		zap.String("function", funcName),
		zap.String("task_id", taskID),
		zap.Int("outputs", len(items)),
	)

	return "", errs.ErrNoResult
}

func (u *TaskUsecase) recordResult(imageURL string) {
	const funcName = "TaskUsecase.recordResult"

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	count, err := u.galleryRepository.SaveImage(ctx, imageURL)
	if err != nil {
		logger.Warn("failed to record result to gallery",
			zap.String("function", funcName),
			zap.String("image_url", imageURL),
			zap.Error(err),
		)
		return
	}

	logger.Info("result recorded to gallery",
		zap.String("function", funcName),
		zap.Int("gallery_count", count),
	)
}

func (u *TaskUsecase) UploadImage(ctx context.Context, fileName string, data []byte) (string, error) {
	const funcName = "TaskUsecase.UploadImage"
	logger.Debug("uploading image",
		zap.String("function", funcName),
		zap.String("file_name", fileName),
	)

	fileID, err := u.gateway.Upload(ctx, fileName, data)
	if err != nil {
		logger.Error("failed to upload image",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return "", err
	}

	return fileID, nil
}

func (u *TaskUsecase) GenerateImage(ctx context.Context, imageID string) (string, error) {
	const funcName = "TaskUsecase.GenerateImage"
	logger.Debug("submitting generation task",
		zap.String("function", funcName),
		zap.String("image_id", imageID),
	)

	if imageID == "" {
		return "", fmt.Errorf("%w: no image ID provided", errs.ErrInvalidRequest)
	}

	run, err := u.gateway.Run(ctx, imageID)
	if err != nil {
		logger.Error("failed to submit generation task",
			zap.String("function", funcName),
			zap.String("image_id", imageID),
			zap.Error(err),
		)
		return "", err
	}

	return run.TaskID, nil
}

func (u *TaskUsecase) CheckStatus(ctx context.Context, taskID string) (*models.Task, error) {
	const funcName = "TaskUsecase.CheckStatus"
	logger.Debug("checking task status",
		zap.String("function", funcName),
		zap.String("task_id", taskID),
	)

	if taskID == "" {
		return nil, fmt.Errorf("%w: no task ID provided", errs.ErrInvalidRequest)
	}

	result, err := u.gateway.Status(ctx, taskID)
	if err != nil {
		logger.Error("failed to check task status",
			zap.String("function", funcName),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", errs.ErrPollingFailed, err)
	}

	task := &models.Task{
		TaskID:   taskID,
		Status:   result.Status,
		Progress: report.ToUserProgress(result.Status, result.Progress),
	}

	return task, nil
}

func (u *TaskUsecase) GetTaskResult(ctx context.Context, taskID string) ([]string, error) {
	const funcName = "TaskUsecase.GetTaskResult"
	logger.Debug("fetching task result",
		zap.String("function", funcName),
		zap.String("task_id", taskID),
	)

	if taskID == "" {
		return nil, fmt.Errorf("%w: no task ID provided", errs.ErrInvalidRequest)
	}

	items, err := u.gateway.Outputs(ctx, taskID)
	if err != nil {
		logger.Error("failed to fetch task outputs",
			zap.String("function", funcName),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch task outputs: %w", err)
	}

	images := make([]string, 0, len(items))
	for _, item := range items {
		if validate.IsImageOutput(item.FileURL, item.FileType) {
			images = append(images, item.FileURL)
		}
	}

	return images, nil
}

func (u *TaskUsecase) PingGateway(ctx context.Context) (json.RawMessage, error) {
	const funcName = "TaskUsecase.PingGateway"
	logger.Debug("pinging gateway",
		zap.String("function", funcName),
	)

	data, err := u.gateway.Ping(ctx)
	if err != nil {
		logger.Error("gateway ping failed",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return nil, err
	}

	return data, nil
}
