// Package postgres stores key/value blobs in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"cartera/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	getValueSQL = `SELECT value FROM kv_store WHERE key = $1`
	upsertSQL   = `INSERT INTO kv_store (key, value, version, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    version = kv_store.version + 1,
    updated_at = NOW()`
)

type Repository struct {
	db *sql.DB
}

// NewRepository connects to dsn and applies the embedded migrations.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewWithDB wraps an existing handle without running migrations.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func RunMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

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

func (r *Repository) Set(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("set key %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Blob saved to Postgres", "key", key, "bytes", len(value))
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var _ storage.KV = (*Repository)(nil)
