package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/logger"
)

// SQLiteStorage persists the gallery and reviews in a local SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func CreateSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "polaroid.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS gallery (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            url TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS reviews (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            comment TEXT NOT NULL,
            rating INTEGER NOT NULL,
            date TEXT NOT NULL
        )`,
	}
	for _, stmt := range schema {
		if _, execErr := db.Exec(stmt); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", execErr)
		}
	}

	logger.Info("sqlite storage initialized",
		zap.String("db_path", dbPath),
	)

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func (s *SQLiteStorage) ListImages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM gallery ORDER BY id DESC LIMIT ?`, maxGalleryImages)
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	images := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan gallery row: %w", err)
		}
		images = append(images, url)
	}

	return images, rows.Err()
}

func (s *SQLiteStorage) SaveImage(ctx context.Context, imageURL string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gallery (url, created_at) VALUES (?, datetime('now'))`, imageURL); err != nil {
		return 0, fmt.Errorf("insert gallery image: %w", err)
	}

	// Evict everything beyond the newest maxGalleryImages entries.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM gallery WHERE id NOT IN (
            SELECT id FROM gallery ORDER BY id DESC LIMIT ?
        )`, maxGalleryImages); err != nil {
		return 0, fmt.Errorf("trim gallery: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM gallery`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count gallery: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return count, nil
}

func (s *SQLiteStorage) DeleteImage(ctx context.Context, imageURL string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gallery WHERE url = ?`, imageURL)
	if err != nil {
		return false, fmt.Errorf("delete gallery image: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

func (s *SQLiteStorage) ListReviews(ctx context.Context) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, comment, rating, date FROM reviews ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(&review.ID, &review.Name, &review.Comment, &review.Rating, &review.Date); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}

	return reviews, rows.Err()
}

func (s *SQLiteStorage) AddReview(ctx context.Context, review models.Review) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, name, comment, rating, date) VALUES (?, ?, ?, ?, ?)`,
		review.ID, review.Name, review.Comment, review.Rating, review.Date); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
