// Package repository provides persistence implementations for client storage:
// the per-scope key/value space that stands in for a browser's local storage.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStorageRepository implements client storage on a PostgreSQL database.
type PostgresStorageRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresStorageRepository creates a new PostgresStorageRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance with the client_storage table.
func NewPostgresStorageRepository(db *sql.DB) *PostgresStorageRepository {
	return &PostgresStorageRepository{DB: db}
}

// Get returns the value stored under key for the scope.
// ok is false when the key is not present.
func (s *PostgresStorageRepository) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT value FROM client_storage WHERE scope = $1 AND key = $2`,
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

// Set stores value under key for the scope, replacing any previous value.
func (s *PostgresStorageRepository) Set(ctx context.Context, scope, key, value string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO client_storage (scope, key, value, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		scope, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key from the scope. Removing a missing key is not an error.
func (s *PostgresStorageRepository) Delete(ctx context.Context, scope, key string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`DELETE FROM client_storage WHERE scope = $1 AND key = $2`,
		scope, key,
	)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
