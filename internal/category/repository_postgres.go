package category

import (
	"context"
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const listCategoriesQuery = `
	SELECT category, COUNT(*)
	FROM books
	WHERE category <> ''
	GROUP BY category
	ORDER BY category
`

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Name, &c.BookCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
