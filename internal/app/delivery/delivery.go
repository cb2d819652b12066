package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"polaroid/internal/app"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/logger"
	"polaroid/internal/utils/responses"
)

const maxUploadBytes = 32 << 20

type HealthInfo struct {
	Environment   string
	APIBaseURL    string
	APIConfigured bool
}

type Delivery struct {
	taskUsecase    app.TaskUsecase
	galleryUsecase app.GalleryUsecase
	reviewUsecase  app.ReviewUsecase
	health         HealthInfo
}

func CreateDelivery(taskUsecase app.TaskUsecase, galleryUsecase app.GalleryUsecase, reviewUsecase app.ReviewUsecase, health HealthInfo) *Delivery {
	return &Delivery{
		taskUsecase:    taskUsecase,
		galleryUsecase: galleryUsecase,
		reviewUsecase:  reviewUsecase,
		health:         health,
	}
}

func (d *Delivery) readUploadedFile(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("read form file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read file data: %w", err)
	}

	return header.Filename, data, nil
}

func (d *Delivery) Upload(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.Upload"
	logger.Debug("uploading image to gateway",
		zap.String("function", funcName),
	)

	fileName, data, err := d.readUploadedFile(r)
	if err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no file provided")
		return
	}

	fileID, err := d.taskUsecase.UploadImage(r.Context(), fileName, data)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"fileName": fileID,
	}, http.StatusOK)
}

func (d *Delivery) Generate(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.Generate"
	logger.Debug("submitting generation task",
		zap.String("function", funcName),
	)

	req := models.GenerateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageID == "" {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no image ID provided")
		return
	}

	taskID, err := d.taskUsecase.GenerateImage(r.Context(), req.ImageID)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"taskId": taskID,
	}, http.StatusOK)
}

func (d *Delivery) Status(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.Status"
	logger.Debug("checking task status",
		zap.String("function", funcName),
	)

	req := models.TaskRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TaskID == "" {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no task ID provided")
		return
	}

	task, err := d.taskUsecase.CheckStatus(r.Context(), req.TaskID)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"status":   task.Status,
		"progress": task.Progress,
	}, http.StatusOK)
}

func (d *Delivery) Result(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.Result"
	logger.Debug("fetching task result",
		zap.String("function", funcName),
	)

	req := models.TaskRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TaskID == "" {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no task ID provided")
		return
	}

	images, err := d.taskUsecase.GetTaskResult(r.Context(), req.TaskID)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"images": images,
	}, http.StatusOK)
}

// Process runs the entire workflow in one request: the response arrives when
// the generated image is ready or the task failed.
func (d *Delivery) Process(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.Process"
	logger.Info("processing image end to end",
		zap.String("function", funcName),
	)

	fileName, data, err := d.readUploadedFile(r)
	if err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no file provided")
		return
	}

	imageURL, err := d.taskUsecase.ProcessImage(r.Context(), fileName, data, nil)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"imageUrl": imageURL,
	}, http.StatusOK)
}

func (d *Delivery) GalleryList(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.GalleryList"
	logger.Debug("listing gallery",
		zap.String("function", funcName),
	)

	images, err := d.galleryUsecase.ListImages(r.Context())
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}
	if images == nil {
		images = []string{}
	}

	responses.DoJSONResponse(w, map[string]any{
		"images": images,
	}, http.StatusOK)
}

func (d *Delivery) GallerySave(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.GallerySave"
	logger.Debug("saving gallery image",
		zap.String("function", funcName),
	)

	req := models.SaveImageRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageURL == "" {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no image URL provided")
		return
	}

	count, err := d.galleryUsecase.SaveImage(r.Context(), req.ImageURL)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"success": true,
		"count":   count,
	}, http.StatusOK)
}

func (d *Delivery) GalleryDelete(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.GalleryDelete"
	logger.Debug("deleting gallery image",
		zap.String("function", funcName),
	)

	req := models.SaveImageRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageURL == "" {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "no image URL provided")
		return
	}

	deleted, err := d.galleryUsecase.DeleteImage(r.Context(), req.ImageURL)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}
	if !deleted {
		responses.DoBadResponseAndLog(w, http.StatusNotFound, "image not found")
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"success": true,
	}, http.StatusOK)
}

func (d *Delivery) GalleryArchive(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.GalleryArchive"
	logger.Debug("downloading gallery archive",
		zap.String("function", funcName),
	)

	// The archive is staged in memory so a failure can still produce a
	// proper error response. The gallery is capped, so this stays small.
	buf := &bytes.Buffer{}
	count, err := d.galleryUsecase.Archive(r.Context(), buf)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename=polaroid-images.zip`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error("failed to write archive response",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return
	}

	logger.Info("gallery archive downloaded",
		zap.String("function", funcName),
		zap.Int("files", count),
	)
}

func (d *Delivery) ReviewsList(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.ReviewsList"
	logger.Debug("listing reviews",
		zap.String("function", funcName),
	)

	reviews, err := d.reviewUsecase.ListReviews(r.Context())
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	responses.DoJSONResponse(w, map[string]any{
		"reviews": reviews,
	}, http.StatusOK)
}

func (d *Delivery) ReviewsAdd(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.ReviewsAdd"
	logger.Debug("adding review",
		zap.String("function", funcName),
	)

	req := models.AddReviewRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.DoBadResponseAndLog(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := d.reviewUsecase.AddReview(r.Context(), req)
	if err != nil {
		responses.ResponseErrorAndLog(w, err, funcName)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"success": true,
		"review":  review,
	}, http.StatusCreated)
}

func (d *Delivery) Health(w http.ResponseWriter, r *http.Request) {
	responses.DoJSONResponse(w, map[string]any{
		"status":        "ok",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"environment":   d.health.Environment,
		"apiConfigured": d.health.APIConfigured,
		"apiBaseUrl":    d.health.APIBaseURL,
	}, http.StatusOK)
}

func (d *Delivery) DebugPing(w http.ResponseWriter, r *http.Request) {
	const funcName = "Delivery.DebugPing"
	logger.Debug("debug gateway ping",
		zap.String("function", funcName),
	)

	data, err := d.taskUsecase.PingGateway(r.Context())
	if err != nil {
		responses.DoJSONResponse(w, map[string]any{
			"status":    "error",
			"message":   "gateway connection failed",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusBadGateway)
		return
	}

	responses.DoJSONResponse(w, map[string]any{
		"status":    "success",
		"message":   "gateway connection ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      data,
	}, http.StatusOK)
}
