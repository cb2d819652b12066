package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"polaroid/internal/app/models"
)

func createTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage, err := CreateSQLiteStorage(t.TempDir())
	assert.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, storage.Close())
	})

	return storage
}

func TestSQLiteStorage_Gallery(t *testing.T) {
	storage := createTestSQLiteStorage(t)
	ctx := context.Background()

	count, err := storage.SaveImage(ctx, "https://cdn.example.com/first.png")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = storage.SaveImage(ctx, "https://cdn.example.com/second.png")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	images, err := storage.ListImages(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example.com/second.png",
		"https://cdn.example.com/first.png",
	}, images)

	deleted, err := storage.DeleteImage(ctx, "https://cdn.example.com/first.png")
	assert.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = storage.DeleteImage(ctx, "https://cdn.example.com/missing.png")
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLiteStorage_Gallery_CapEnforced(t *testing.T) {
	storage := createTestSQLiteStorage(t)
	ctx := context.Background()

	for i := 0; i < maxGalleryImages+5; i++ {
		count, err := storage.SaveImage(ctx, fmt.Sprintf("https://cdn.example.com/%d.png", i))
		assert.NoError(t, err)
		assert.LessOrEqual(t, count, maxGalleryImages)
	}

	images, err := storage.ListImages(ctx)
	assert.NoError(t, err)
	assert.Len(t, images, maxGalleryImages)
	assert.Equal(t, fmt.Sprintf("https://cdn.example.com/%d.png", maxGalleryImages+4), images[0])
}

func TestSQLiteStorage_Reviews(t *testing.T) {
	storage := createTestSQLiteStorage(t)
	ctx := context.Background()

	reviews, err := storage.ListReviews(ctx)
	assert.NoError(t, err)
	assert.Empty(t, reviews)

	first := models.Review{ID: "1", Name: "Anna", Comment: "Nice", Rating: 5, Date: "2025-08-01T12:00:00Z"}
	second := models.Review{ID: "2", Name: "Boris", Comment: "Okay", Rating: 3, Date: "2025-08-02T12:00:00Z"}

	assert.NoError(t, storage.AddReview(ctx, first))
	assert.NoError(t, storage.AddReview(ctx, second))

	reviews, err = storage.ListReviews(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []models.Review{first, second}, reviews)
}
