package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStorageRepository implements client storage on SQLite.
type SQLiteStorageRepository struct {
	// DB is the database handle; see db.InitSQLite.
	DB *sql.DB
}

// NewSQLiteStorageRepository wraps an initialised SQLite handle.
func NewSQLiteStorageRepository(db *sql.DB) *SQLiteStorageRepository {
	return &SQLiteStorageRepository{DB: db}
}

// Get returns the value stored under key for the scope.
func (s *SQLiteStorageRepository) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE scope = ? AND key = ?`,
		scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key for the scope.
func (s *SQLiteStorageRepository) Set(ctx context.Context, scope, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO client_storage (scope, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(scope, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`,
		scope, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key from the scope.
func (s *SQLiteStorageRepository) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM client_storage WHERE scope = ? AND key = ?`,
		scope, key,
	); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
