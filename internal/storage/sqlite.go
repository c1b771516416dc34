package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/pillbox/internal/models"
)

// SQLiteCache persists drug information in a local SQLite database.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS drug_info (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_drug_info_expires_at ON drug_info(expires_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Get loads the entry for key. Expired rows are deleted and reported as a miss.
func (s *SQLiteCache) Get(ctx context.Context, key string) (*models.DrugInfo, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, expires_at FROM drug_info WHERE key = ?", key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read drug info: %w", err)
	}
	if expiresAt > 0 && s.now().Unix() >= expiresAt {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM drug_info WHERE key = ?", key)
		return nil, ErrCacheMiss
	}
	var info models.DrugInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, fmt.Errorf("failed to decode drug info: %w", err)
	}
	return &info, nil
}

// Set upserts the entry for key.
func (s *SQLiteCache) Set(ctx context.Context, key string, info *models.DrugInfo, ttl time.Duration) error {
	if info == nil {
		return nil
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode drug info: %w", err)
	}
	var expiresAt int64
	if exp := expiry(s.now(), ttl); !exp.IsZero() {
		expiresAt = exp.Unix()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drug_info (key, payload, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(payload), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to write drug info: %w", err)
	}
	return nil
}

// Delete removes key if present.
func (s *SQLiteCache) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM drug_info WHERE key = ?", key)
	return err
}

// Len counts stored rows.
func (s *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM drug_info").Scan(&n)
	return n, err
}

// Purge deletes every expired row and reports how many were removed.
func (s *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM drug_info WHERE expires_at > 0 AND expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
