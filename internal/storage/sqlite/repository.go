package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cartera/internal/storage"

	_ "modernc.org/sqlite"
)

const (
	getValueSQL = `SELECT value FROM kv_store WHERE key = ?`
	upsertSQL   = `INSERT INTO kv_store (key, value, version, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    version = kv_store.version + 1,
    updated_at = excluded.updated_at`
	getVersionSQL = `SELECT version, updated_at FROM kv_store WHERE key = ?`
)

type Repository struct {
	db *sql.DB
}

// KeyInfo describes the stored revision of a key.
type KeyInfo struct {
	Key       string
	Version   int64
	UpdatedAt time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Get implements storage.Reader
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, getValueSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get key %s: %w", key, err)
	}
	return value, nil
}

// Set implements storage.Writer
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, upsertSQL, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set key %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Blob saved to SQLite",
		"key", key,
		"bytes", len(value))
	return nil
}

// Info returns the version counter and last write time of key.
func (r *Repository) Info(ctx context.Context, key string) (KeyInfo, error) {
	info := KeyInfo{Key: key}
	err := r.db.QueryRowContext(ctx, getVersionSQL, key).Scan(&info.Version, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("get key info %s: %w", key, err)
	}
	return info, nil
}

var _ storage.KV = (*Repository)(nil)
