package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
	_ "modernc.org/sqlite"
)

const sqliteRepoSchema = `
CREATE TABLE IF NOT EXISTS session_values (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteRepo persists session keys in a single SQLite table.
type SQLiteRepo struct {
	db *sql.DB
}

var _ Repo = (*SQLiteRepo)(nil)

// NewSQLiteRepo opens (or creates) the database at dsn.
func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("[NewSQLiteRepo] dsn is required")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("[NewSQLiteRepo] creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("[NewSQLiteRepo] opening: %w", err)
	}
	// one connection keeps ":memory:" databases coherent across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteRepoSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[NewSQLiteRepo] creating schema: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session_values WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.Wrapf(apperrors.ErrNotFound, "[SQLiteRepo Get] key %q", key)
	}
	if err != nil {
		return "", fmt.Errorf("[SQLiteRepo Get] key %q: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepo) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("[SQLiteRepo Set] key is required")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_values (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("[SQLiteRepo Set] key %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, key); err != nil {
		return fmt.Errorf("[SQLiteRepo Delete] key %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
