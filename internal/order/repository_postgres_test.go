package order

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/bookstore-backend/internal/book"
	"github.com/wichananm65/bookstore-backend/internal/cart"
)

var orderCols = []string{"id", "user_id", "items", "total_amount", "shipping_address", "payment_status", "payment_id", "order_status", "created_at", "updated_at"}

func testOrder() Order {
	now := time.Now().UTC()
	return Order{
		UserID:          42,
		Items:           []Item{{BookID: 1, Title: "Dune", Quantity: 2, Price: decimal.RequireFromString("10")}},
		TotalAmount:     decimal.RequireFromString("20"),
		ShippingAddress: addr,
		PaymentStatus:   PaymentPending,
		Status:          StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

var seenCart = cart.Cart{ID: 3, UserID: 42, UpdatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

func TestPostgresPlace_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books SET stock = stock - \\$1").WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("UPDATE carts").WithArgs(3, seenCart.UpdatedAt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := repo.Place(context.Background(), testOrder(), seenCart)
	require.NoError(t, err)
	assert.Equal(t, 7, o.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlace_RollsBackOnShortStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books SET stock").WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT title, stock FROM books").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"title", "stock"}).AddRow("Dune", 1))
	mock.ExpectRollback()

	_, err = repo.Place(context.Background(), testOrder(), seenCart)
	assert.ErrorIs(t, err, book.ErrInsufficientStock)
	assert.EqualError(t, err, "Dune does not have enough stock. Available: 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlace_RollsBackWhenCartChanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books SET stock").WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO orders").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("UPDATE carts").WithArgs(3, seenCart.UpdatedAt).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM carts").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err = repo.Place(context.Background(), testOrder(), seenCart)
	assert.ErrorIs(t, err, cart.ErrChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	items := `[{"bookId":1,"title":"Dune","author":"Frank Herbert","quantity":2,"price":"10.00"}]`
	address := `{"street":"1 Main St","city":"Springfield","state":"IL","zipCode":"62701","country":"US"}`
	mock.ExpectQuery("FROM orders WHERE id = \\$1").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(7, 42, []byte(items), "20.00", []byte(address), "pending", "", "processing", now, now))

	o, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 42, o.UserID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Dune", o.Items[0].Title)
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
}

func TestPostgresMarkPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("UPDATE orders").WithArgs(7, "paid", "pi_1").WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.MarkPaid(context.Background(), 7, "pi_1")
	require.NoError(t, err)
	assert.True(t, changed)

	// replay: nothing pending, but the order exists
	mock.ExpectExec("UPDATE orders").WithArgs(7, "paid", "pi_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM orders").WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	changed, err = repo.MarkPaid(context.Background(), 7, "pi_1")
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec("UPDATE orders").WithArgs(8, "failed", "").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM orders").WithArgs(8).WillReturnRows(sqlmock.NewRows([]string{"exists"}))
	_, err = repo.MarkFailed(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
