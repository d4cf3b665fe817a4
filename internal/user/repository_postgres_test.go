package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var userCols = []string{"id", "name", "email", "password", "google_id", "role", "created_at", "updated_at"}

func TestGetByEmail_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM users WHERE lower\\(email\\)").WithArgs("a@b.co").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "A", "a@b.co", "$2a$hash", nil, "admin", now, now))

	u, err := repo.GetByEmail(context.Background(), "a@b.co")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 3 || u.Role != RoleAdmin || u.GoogleID != nil {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("FROM users WHERE id").WithArgs(9).WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), 9); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: "23505"})

	if _, err := repo.Create(context.Background(), User{Email: "a@b.co", Role: RoleUser}); err != ErrEmailExists {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}
