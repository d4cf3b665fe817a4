package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	bookColumns = `id, title, author, price, stock, category, description, image_url, rating, num_reviews, created_at, updated_at`

	getBookByIDQuery = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	listByIDsQuery   = `SELECT ` + bookColumns + ` FROM books WHERE id = ANY($1::int[]) ORDER BY id`
	listReviewsQuery = `
		SELECT user_id, name, rating, comment, created_at
		FROM reviews
		WHERE book_id = $1
		ORDER BY created_at
	`
	insertBookQuery = `
		INSERT INTO books (title, author, price, stock, category, description, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`
	deleteBookQuery   = `DELETE FROM books WHERE id = $1`
	lockBookQuery     = `SELECT id FROM books WHERE id = $1 FOR UPDATE`
	insertReviewQuery = `
		INSERT INTO reviews (book_id, user_id, name, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	refreshRatingQuery = `
		UPDATE books
		SET rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE book_id = $1), 0),
			num_reviews = (SELECT COUNT(*) FROM reviews WHERE book_id = $1),
			updated_at = now()
		WHERE id = $1
	`
	decrementStockQuery = `UPDATE books SET stock = stock - $1, updated_at = now() WHERE id = $2 AND stock >= $1`
	stockQuery          = `SELECT title, stock FROM books WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Book, int, error) {
	f = f.normalized()
	where, args := whereClause(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM books%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		bookColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.PageSize, f.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Book, 0, f.PageSize)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func whereClause(f Filter) (string, []any) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 6)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.SearchQuery != "" {
		p := next("%" + f.SearchQuery + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR author ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if f.Title != "" {
		conds = append(conds, "title ILIKE "+next("%"+f.Title+"%"))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+next(f.Category))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+next(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+next(*f.MaxPrice))
	}
	if f.MinRating != nil {
		conds = append(conds, "rating >= "+next(*f.MinRating))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int) (Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, getBookByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}

	rows, err := r.db.QueryContext(ctx, listReviewsQuery, id)
	if err != nil {
		return Book{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return Book{}, err
		}
		b.Reviews = append(b.Reviews, rv)
	}
	return b, rows.Err()
}

// ListByIDs retrieves the books for all ids in the provided slice. Missing ids
// are skipped; an empty input returns an empty slice.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []int) ([]Book, error) {
	if len(ids) == 0 {
		return []Book{}, nil
	}
	rows, err := r.db.QueryContext(ctx, listByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Book, 0, len(ids))
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, b Book) (Book, error) {
	err := r.db.QueryRowContext(ctx, insertBookQuery,
		b.Title,
		b.Author,
		b.Price,
		b.Stock,
		b.Category,
		b.Description,
		b.ImageURL,
		b.CreatedAt,
		b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update writes only the columns set in p, so a concurrent stock decrement
// is not overwritten by an unrelated edit.
func (r *PostgresRepository) Update(ctx context.Context, id int, p Patch) (Book, error) {
	set, args := patchAssignments(p)
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d`, set, len(args))

	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return Book{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Book{}, err
	}
	if affected == 0 {
		return Book{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func patchAssignments(p Patch) (string, []any) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)
	assign := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		assign("title", *p.Title)
	}
	if p.Author != nil {
		assign("author", *p.Author)
	}
	if p.Price != nil {
		assign("price", *p.Price)
	}
	if p.Stock != nil {
		assign("stock", *p.Stock)
	}
	if p.Category != nil {
		assign("category", *p.Category)
	}
	if p.Description != nil {
		assign("description", *p.Description)
	}
	if p.ImageURL != nil {
		assign("image_url", *p.ImageURL)
	}
	sets = append(sets, "updated_at = now()")
	return strings.Join(sets, ", "), args
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteBookQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddReview(ctx context.Context, bookID int, review Review) (Book, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Book{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int
	if err := tx.QueryRowContext(ctx, lockBookQuery, bookID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	if _, err := tx.ExecContext(ctx, insertReviewQuery,
		bookID, review.UserID, review.Name, review.Rating, review.Comment, review.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return Book{}, ErrAlreadyReviewed
		}
		return Book{}, err
	}
	if _, err := tx.ExecContext(ctx, refreshRatingQuery, bookID); err != nil {
		return Book{}, err
	}
	if err := tx.Commit(); err != nil {
		return Book{}, err
	}
	return r.FindByID(ctx, bookID)
}

// ReserveTx decrements stock inside tx for every book in quantities. A book
// whose stock cannot cover its quantity yields *InsufficientStockError and the
// caller is expected to roll tx back.
func ReserveTx(ctx context.Context, tx *sql.Tx, quantities map[int]int) error {
	for _, id := range sortedIDs(quantities) {
		q := quantities[id]
		if q < 1 {
			return ErrInvalidQuantity
		}
		result, err := tx.ExecContext(ctx, decrementStockQuery, q, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 1 {
			continue
		}

		var title string
		var stock int
		if err := tx.QueryRowContext(ctx, stockQuery, id).Scan(&title, &stock); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return &InsufficientStockError{BookID: id, Title: title, Available: stock, Requested: q}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(scanner rowScanner) (Book, error) {
	b := Book{}
	if err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Price,
		&b.Stock,
		&b.Category,
		&b.Description,
		&b.ImageURL,
		&b.Rating,
		&b.NumReviews,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return Book{}, err
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
