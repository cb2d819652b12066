package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/logger"
)

// FileStorage keeps the gallery and reviews in flat JSON files. Writes are
// read-modify-write full replacements, serialized by an in-process mutex and
// a file lock shared with any other process using the same data directory.
type FileStorage struct {
	galleryPath string
	reviewsPath string
	lock        *flock.Flock
	mu          sync.Mutex
}

func CreateFileStorage(dataDir string) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	storage := &FileStorage{
		galleryPath: filepath.Join(dataDir, "gallery.json"),
		reviewsPath: filepath.Join(dataDir, "reviews.json"),
		lock:        flock.New(filepath.Join(dataDir, "storage.lock")),
	}

	logger.Info("file storage initialized",
		zap.String("gallery_path", storage.galleryPath),
		zap.String("reviews_path", storage.reviewsPath),
	)

	return storage, nil
}

func (s *FileStorage) ListImages(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadImages()
}

func (s *FileStorage) SaveImage(ctx context.Context, imageURL string) (int, error) {
	const funcName = "FileStorage.SaveImage"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("acquire storage lock: %w", err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	images, err := s.loadImages()
	if err != nil {
		return 0, err
	}

	images = append([]string{imageURL}, images...)
	if len(images) > maxGalleryImages {
		images = images[:maxGalleryImages]
	}

	if err := s.writeJSON(s.galleryPath, images); err != nil {
		return 0, err
	}

	logger.Info("gallery image saved",
		zap.String("function", funcName),
		zap.Int("count", len(images)),
	)

	return len(images), nil
}

func (s *FileStorage) DeleteImage(ctx context.Context, imageURL string) (bool, error) {
	const funcName = "FileStorage.DeleteImage"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return false, fmt.Errorf("acquire storage lock: %w", err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	images, err := s.loadImages()
	if err != nil {
		return false, err
	}

	filtered := make([]string, 0, len(images))
	for _, url := range images {
		if url != imageURL {
			filtered = append(filtered, url)
		}
	}

	if len(filtered) == len(images) {
		logger.Warn("image to delete not found",
			zap.String("function", funcName),
			zap.String("image_url", imageURL),
		)
		return false, nil
	}

	if err := s.writeJSON(s.galleryPath, filtered); err != nil {
		return false, err
	}

	return true, nil
}

func (s *FileStorage) ListReviews(ctx context.Context) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadReviews()
}

func (s *FileStorage) AddReview(ctx context.Context, review models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire storage lock: %w", err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	reviews, err := s.loadReviews()
	if err != nil {
		return err
	}

	reviews = append(reviews, review)
	return s.writeJSON(s.reviewsPath, reviews)
}

func (s *FileStorage) Close() error {
	return nil
}

// loadImages reads the gallery file. A missing file is an empty gallery; a
// corrupt file is reset to empty, matching the tolerant reader the service
// always had.
func (s *FileStorage) loadImages() ([]string, error) {
	images := []string{}
	if err := s.readJSON(s.galleryPath, &images); err != nil {
		return nil, err
	}
	if images == nil {
		images = []string{}
	}
	return images, nil
}

func (s *FileStorage) loadReviews() ([]models.Review, error) {
	reviews := []models.Review{}
	if err := s.readJSON(s.reviewsPath, &reviews); err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *FileStorage) readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		logger.Warn("corrupt storage file, resetting",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}

	return nil
}

func (s *FileStorage) writeJSON(path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
