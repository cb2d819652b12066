package repository

import (
	"fmt"

	"polaroid/internal/app"
	"polaroid/internal/config"
)

// maxGalleryImages bounds the gallery in every backend: newest first,
// oldest evicted beyond the cap.
const maxGalleryImages = 30

// CreateStorage selects the persistence backend once at process start.
func CreateStorage(cfg *config.Config) (app.Storage, error) {
	switch cfg.StorageType {
	case "file", "":
		return CreateFileStorage(cfg.DataDir)
	case "sqlite":
		return CreateSQLiteStorage(cfg.DataDir)
	case "redis":
		return CreateRedisStorage(cfg.RedisAddr, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.StorageType)
	}
}
