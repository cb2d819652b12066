package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/logger"
)

const (
	galleryKey = "polaroid:gallery"
	reviewsKey = "polaroid:reviews"

	redisConnectTimeout = 10 * time.Second
)

// RedisStorage keeps the gallery as a Redis list (LPUSH + LTRIM gives the
// bounded most-recent-first sequence directly) and reviews as an append-only
// list of JSON documents.
type RedisStorage struct {
	client *redis.Client
}

func CreateRedisStorage(addr string, db int) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis storage initialized",
		zap.String("addr", addr),
		zap.Int("db", db),
	)

	return &RedisStorage{client: client}, nil
}

func (s *RedisStorage) ListImages(ctx context.Context) ([]string, error) {
	images, err := s.client.LRange(ctx, galleryKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	if images == nil {
		images = []string{}
	}

	return images, nil
}

func (s *RedisStorage) SaveImage(ctx context.Context, imageURL string) (int, error) {
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, galleryKey, imageURL)
	pipe.LTrim(ctx, galleryKey, 0, maxGalleryImages-1)
	lenCmd := pipe.LLen(ctx, galleryKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("save gallery image: %w", err)
	}

	return int(lenCmd.Val()), nil
}

func (s *RedisStorage) DeleteImage(ctx context.Context, imageURL string) (bool, error) {
	removed, err := s.client.LRem(ctx, galleryKey, 0, imageURL).Result()
	if err != nil {
		return false, fmt.Errorf("delete gallery image: %w", err)
	}

	return removed > 0, nil
}

func (s *RedisStorage) ListReviews(ctx context.Context) ([]models.Review, error) {
	entries, err := s.client.LRange(ctx, reviewsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	reviews := make([]models.Review, 0, len(entries))
	for _, entry := range entries {
		var review models.Review
		if err := json.Unmarshal([]byte(entry), &review); err != nil {
			logger.Warn("skipping malformed review entry",
				zap.Error(err),
			)
			continue
		}
		reviews = append(reviews, review)
	}

	return reviews, nil
}

func (s *RedisStorage) AddReview(ctx context.Context, review models.Review) error {
	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	if err := s.client.RPush(ctx, reviewsKey, data).Err(); err != nil {
		return fmt.Errorf("add review: %w", err)
	}

	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
