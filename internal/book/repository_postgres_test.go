package book

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var bookCols = []string{"id", "title", "author", "price", "stock", "category", "description", "image_url", "rating", "num_reviews", "created_at", "updated_at"}

func TestPostgresList_BuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	minPrice := decimal.RequireFromString("5")
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books WHERE \(title ILIKE \$1 OR author ILIKE \$1 OR description ILIKE \$1\) AND category = \$2 AND price >= \$3`).
		WithArgs("%dune%", "Sci-Fi", minPrice).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("%dune%", "Sci-Fi", minPrice, 10, 10).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(1, "Dune", "Frank Herbert", "12.50", 3, "Sci-Fi", "", "", 4.5, 2, now, now))

	books, total, err := repo.List(context.Background(), Filter{Page: 2, SearchQuery: "dune", Category: "Sci-Fi", MinPrice: &minPrice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 11 || len(books) != 1 {
		t.Fatalf("unexpected result total=%d books=%d", total, len(books))
	}
	if !books[0].Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected price %s", books[0].Price)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresListByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectQuery(`WHERE id = ANY\(\$1::int\[\]\)`).
		WillReturnRows(sqlmock.NewRows(bookCols).
			AddRow(1, "Dune", "Frank Herbert", "12.50", 3, "Sci-Fi", "", "", 0, 0, now, now).
			AddRow(2, "Emma", "Jane Austen", "8.00", 1, "Romance", "", "", 0, 0, now, now))

	books, err := repo.ListByIDs(context.Background(), []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}

	empty, err := repo.ListByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result without a query, got %v %v", empty, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdate_WritesOnlyPatchedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	title := "Dune Messiah"
	price := decimal.RequireFromString("14.00")

	mock.ExpectExec(`^UPDATE books SET title = \$1, price = \$2, updated_at = now\(\) WHERE id = \$3$`).
		WithArgs(title, price, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM books WHERE id = \$1`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(bookCols).
			AddRow(1, title, "Frank Herbert", "14.00", 2, "Sci-Fi", "", "", 0, 0, now, now))
	mock.ExpectQuery(`FROM reviews`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "rating", "comment", "created_at"}))

	b, err := repo.Update(context.Background(), 1, Patch{Title: &title, Price: &price})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Title != title || b.Stock != 2 {
		t.Fatalf("unexpected book %+v", b)
	}

	stock := 0
	mock.ExpectExec(`^UPDATE books SET stock = \$1, updated_at = now\(\) WHERE id = \$2$`).
		WithArgs(0, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if _, err := repo.Update(context.Background(), 9, Patch{Stock: &stock}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAddReview_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM books WHERE id = \\$1 FOR UPDATE").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("INSERT INTO reviews").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err = repo.AddReview(context.Background(), 1, Review{UserID: 3, Rating: 5})
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReserveTx_ShortStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books SET stock = stock - \\$1").WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE books SET stock = stock - \\$1").WithArgs(5, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT title, stock FROM books").WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"title", "stock"}).AddRow("Emma", 1))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = ReserveTx(context.Background(), tx, map[int]int{1: 2, 2: 5})
	_ = tx.Rollback()

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Title != "Emma" || stockErr.Available != 1 || stockErr.Requested != 5 {
		t.Fatalf("unexpected error detail %+v", stockErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReserveTx_RejectsNonPositive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = ReserveTx(context.Background(), tx, map[int]int{1: -3})
	_ = tx.Rollback()

	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
