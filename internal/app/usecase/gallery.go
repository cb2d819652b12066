package usecase

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"polaroid/internal/app"
	"polaroid/internal/utils/errs"
	"polaroid/internal/utils/logger"
)

const archiveDownloadTimeout = 30 * time.Second

type GalleryUsecase struct {
	galleryRepository app.GalleryRepository
	httpClient        *http.Client
}

func CreateGalleryUsecase(galleryRepository app.GalleryRepository) *GalleryUsecase {
	return &GalleryUsecase{
		galleryRepository: galleryRepository,
		httpClient:        &http.Client{Timeout: archiveDownloadTimeout},
	}
}

func (u *GalleryUsecase) ListImages(ctx context.Context) ([]string, error) {
	const funcName = "GalleryUsecase.ListImages"
	logger.Debug("listing gallery images",
		zap.String("function", funcName),
	)

	images, err := u.galleryRepository.ListImages(ctx)
	if err != nil {
		logger.Error("failed to list gallery images",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return nil, err
	}

	return images, nil
}

func (u *GalleryUsecase) SaveImage(ctx context.Context, imageURL string) (int, error) {
	const funcName = "GalleryUsecase.SaveImage"
	logger.Debug("saving gallery image",
		zap.String("function", funcName),
		zap.String("image_url", imageURL),
	)

	if imageURL == "" {
		return 0, fmt.Errorf("%w: no image URL provided", errs.ErrInvalidRequest)
	}

	count, err := u.galleryRepository.SaveImage(ctx, imageURL)
	if err != nil {
		logger.Error("failed to save gallery image",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return 0, err
	}

	return count, nil
}

func (u *GalleryUsecase) DeleteImage(ctx context.Context, imageURL string) (bool, error) {
	const funcName = "GalleryUsecase.DeleteImage"
	logger.Debug("deleting gallery image",
		zap.String("function", funcName),
		zap.String("image_url", imageURL),
	)

	if imageURL == "" {
		return false, fmt.Errorf("%w: no image URL provided", errs.ErrInvalidRequest)
	}

	deleted, err := u.galleryRepository.DeleteImage(ctx, imageURL)
	if err != nil {
		logger.Error("failed to delete gallery image",
			zap.String("function", funcName),
			zap.Error(err),
		)
		return false, err
	}

	return deleted, nil
}

// Archive downloads every gallery image concurrently and writes them to w as
// a ZIP file. Images that cannot be fetched are skipped; the archive fails
// only when nothing could be added.
func (u *GalleryUsecase) Archive(ctx context.Context, w io.Writer) (int, error) {
	const funcName = "GalleryUsecase.Archive"
	logger.Info("building gallery archive",
		zap.String("function", funcName),
	)

	images, err := u.galleryRepository.ListImages(ctx)
	if err != nil {
		return 0, err
	}
	if len(images) == 0 {
		return 0, fmt.Errorf("%w: gallery is empty", errs.ErrNoResult)
	}

	// Each goroutine writes its own index, so no locking is needed.
	downloads := make([][]byte, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, imageURL := range images {
		g.Go(func() error {
			data, err := u.fetchImage(gctx, imageURL)
			if err != nil {
				logger.Warn("failed to download gallery image",
					zap.String("function", funcName),
					zap.String("image_url", imageURL),
					zap.Error(err),
				)
				return nil
			}

			downloads[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	zipWriter := zip.NewWriter(w)
	successCount := 0
	for i, data := range downloads {
		if data == nil {
			continue
		}

		name := fmt.Sprintf("polaroid-image-%d.%s", i+1, fileExtension(images[i]))
		fileWriter, err := zipWriter.Create(name)
		if err != nil {
			logger.Warn("failed to create file in archive",
				zap.String("function", funcName),
				zap.String("file_name", name),
				zap.Error(err),
			)
			continue
		}
		if _, err := fileWriter.Write(data); err != nil {
			return successCount, fmt.Errorf("write archive entry: %w", err)
		}

		successCount++
	}

	if err := zipWriter.Close(); err != nil {
		return successCount, fmt.Errorf("close archive: %w", err)
	}

	if successCount == 0 {
		return 0, fmt.Errorf("%w: no gallery image could be downloaded", errs.ErrNoResult)
	}

	logger.Info("gallery archive built",
		zap.String("function", funcName),
		zap.Int("files_archived", successCount),
		zap.Int("total_images", len(images)),
	)

	return successCount, nil
}

func (u *GalleryUsecase) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func fileExtension(imageURL string) string {
	trimmed := imageURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	parts := strings.Split(trimmed, "/")
	fileName := parts[len(parts)-1]
	if idx := strings.LastIndex(fileName, "."); idx >= 0 && idx < len(fileName)-1 {
		return fileName[idx+1:]
	}

	return "png"
}
