package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	cartColumns = `id, user_id, items, total_amount, created_at, updated_at`

	getCartByUserQuery = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`
	// the no-op update makes RETURNING yield the existing row on conflict
	createCartQuery = `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + cartColumns
	saveCartQuery = `
		UPDATE carts
		SET items = $1,
			total_amount = $2,
			updated_at = $3
		WHERE id = $4
	`
	emptyCartQuery = `
		UPDATE carts
		SET items = '[]', total_amount = 0, updated_at = now()
		WHERE id = $1 AND updated_at = $2
	`
	cartExistsQuery = `SELECT 1 FROM carts WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByUser(ctx context.Context, userID int) (Cart, error) {
	c, err := scanCart(r.db.QueryRowContext(ctx, getCartByUserQuery, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, userID int) (Cart, error) {
	return scanCart(r.db.QueryRowContext(ctx, createCartQuery, userID))
}

func (r *PostgresRepository) Save(ctx context.Context, c Cart) (Cart, error) {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return Cart{}, err
	}
	result, err := r.db.ExecContext(ctx, saveCartQuery, string(items), c.TotalAmount, c.UpdatedAt, c.ID)
	if err != nil {
		return Cart{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Cart{}, err
	}
	if affected == 0 {
		return Cart{}, ErrNotFound
	}
	return c, nil
}

// EmptyTx clears the cart inside tx. It is used by order placement so that
// the cart is emptied in the same transaction that creates the order. The
// cart must still carry the updated_at value seen when it was read;
// otherwise ErrChanged is returned and the caller rolls back.
func EmptyTx(ctx context.Context, tx *sql.Tx, cartID int, seen time.Time) error {
	result, err := tx.ExecContext(ctx, emptyCartQuery, cartID, seen)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var one int
	if err := tx.QueryRowContext(ctx, cartExistsQuery, cartID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrChanged
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(scanner rowScanner) (Cart, error) {
	var c Cart
	var raw []byte
	if err := scanner.Scan(&c.ID, &c.UserID, &raw, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Cart{}, err
	}
	c.Items = []Item{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Items); err != nil {
			return Cart{}, fmt.Errorf("decode cart %d items: %w", c.ID, err)
		}
	}
	return c, nil
}
