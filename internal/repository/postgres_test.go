package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupPostgresMock(t *testing.T) (*PostgresStorageRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresStorageRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

const (
	selectValueSQL = `SELECT value FROM client_storage WHERE scope = $1 AND key = $2`
	upsertValueSQL = `INSERT INTO client_storage (scope, key, value, updated_at) VALUES ($1, $2, $3, $4)`
	deleteValueSQL = `DELETE FROM client_storage WHERE scope = $1 AND key = $2`
)

func TestPostgresGet_Found(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectValueSQL)).
		WithArgs("scope-1", "isLoggedIn").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("true"))

	value, ok, err := repo.Get(context.Background(), "scope-1", "isLoggedIn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || value != "true" {
		t.Errorf("Get = (%q, %v); want (\"true\", true)", value, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresGet_Missing(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectValueSQL)).
		WithArgs("scope-1", "user").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	value, ok, err := repo.Get(context.Background(), "scope-1", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || value != "" {
		t.Errorf("Get = (%q, %v); want (\"\", false)", value, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresGet_Error(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectValueSQL)).
		WithArgs("scope-1", "user").
		WillReturnError(errors.New("query failed"))

	_, _, err := repo.Get(context.Background(), "scope-1", "user")
	if err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresSet_Success(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(upsertValueSQL)).
		WithArgs("scope-1", "user", `{"name":"Ann"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Set(context.Background(), "scope-1", "user", `{"name":"Ann"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresSet_Error(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(upsertValueSQL)).
		WithArgs("scope-1", "user", "x", sqlmock.AnyArg()).
		WillReturnError(errors.New("insert failed"))

	if err := repo.Set(context.Background(), "scope-1", "user", "x"); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDelete(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(deleteValueSQL)).
		WithArgs("scope-1", "isLoggedIn").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "scope-1", "isLoggedIn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDelete_Error(t *testing.T) {
	repo, mock, cleanup := setupPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(deleteValueSQL)).
		WithArgs("scope-1", "isLoggedIn").
		WillReturnError(errors.New("delete failed"))

	if err := repo.Delete(context.Background(), "scope-1", "isLoggedIn"); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
