package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wichananm65/bookstore-backend/internal/book"
	"github.com/wichananm65/bookstore-backend/internal/cart"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	orderColumns = `id, user_id, items, total_amount, shipping_address, payment_status, payment_id, order_status, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (user_id, items, total_amount, shipping_address, payment_status, order_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`
	getOrderByIDQuery     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersByUserQuery = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	saveOrderQuery        = `
		UPDATE orders
		SET payment_status = $1,
			payment_id = $2,
			order_status = $3,
			updated_at = $4
		WHERE id = $5
	`
	settleOrderQuery = `
		UPDATE orders
		SET payment_status = $2,
			payment_id = COALESCE(NULLIF($3, ''), payment_id),
			updated_at = now()
		WHERE id = $1 AND payment_status = 'pending'
	`
	orderExistsQuery = `SELECT 1 FROM orders WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Place runs stock reservation, order insert and cart emptying in one
// transaction. Stock is decremented with a conditional update so two
// concurrent checkouts cannot both take the last copy.
func (r *PostgresRepository) Place(ctx context.Context, ord Order, from cart.Cart) (Order, error) {
	items, err := json.Marshal(ord.Items)
	if err != nil {
		return Order{}, err
	}
	addr, err := json.Marshal(ord.ShippingAddress)
	if err != nil {
		return Order{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := book.ReserveTx(ctx, tx, ord.Quantities()); err != nil {
		return Order{}, err
	}
	if err := tx.QueryRowContext(ctx, insertOrderQuery,
		ord.UserID,
		string(items),
		ord.TotalAmount,
		string(addr),
		ord.PaymentStatus,
		ord.Status,
		ord.CreatedAt,
		ord.UpdatedAt,
	).Scan(&ord.ID); err != nil {
		return Order{}, err
	}
	if err := cart.EmptyTx(ctx, tx, from.ID, from.UpdatedAt); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepository) FindByUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listOrdersByUserQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Save persists the mutable parts of an order: statuses and payment reference.
func (r *PostgresRepository) Save(ctx context.Context, ord Order) (Order, error) {
	result, err := r.db.ExecContext(ctx, saveOrderQuery,
		ord.PaymentStatus,
		ord.PaymentID,
		ord.Status,
		ord.UpdatedAt,
		ord.ID,
	)
	if err != nil {
		return Order{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Order{}, err
	}
	if affected == 0 {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, id int, paymentID string) (bool, error) {
	return r.settle(ctx, id, PaymentPaid, paymentID)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id int) (bool, error) {
	return r.settle(ctx, id, PaymentFailed, "")
}

func (r *PostgresRepository) settle(ctx context.Context, id int, to PaymentStatus, paymentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, settleOrderQuery, id, to, paymentID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}

	var one int
	if err := r.db.QueryRowContext(ctx, orderExistsQuery, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(scanner rowScanner) (Order, error) {
	var o Order
	var items, addr []byte
	if err := scanner.Scan(
		&o.ID,
		&o.UserID,
		&items,
		&o.TotalAmount,
		&addr,
		&o.PaymentStatus,
		&o.PaymentID,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return Order{}, err
	}
	o.Items = []Item{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return Order{}, fmt.Errorf("decode order %d items: %w", o.ID, err)
		}
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return Order{}, fmt.Errorf("decode order %d address: %w", o.ID, err)
		}
	}
	return o, nil
}
