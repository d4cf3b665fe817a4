package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, name, email, password, google_id, role, created_at, updated_at`

	listUsersQuery      = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	insertUserQuery = `
		INSERT INTO users (name, email, password, google_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	updateUserQuery = `
		UPDATE users
		SET name = $1,
			email = $2,
			password = COALESCE(NULLIF($3, ''), password),
			google_id = $4,
			role = $5,
			updated_at = $6
		WHERE id = $7
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, getUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, getUserByEmailQuery, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		insertUserQuery,
		user.Name,
		user.Email,
		user.Password,
		nullString(user.GoogleID),
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}

	user.ID = id
	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int, userUpdate User) (User, error) {
	result, err := r.db.ExecContext(ctx,
		updateUserQuery,
		userUpdate.Name,
		userUpdate.Email,
		userUpdate.Password,
		nullString(userUpdate.GoogleID),
		string(userUpdate.Role),
		userUpdate.UpdatedAt,
		id,
	)
	if err != nil {
		return User{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return User{}, err
	}
	if affected == 0 {
		return User{}, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteUserQuery, id)
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

func scanUser(scanner rowScanner) (User, error) {
	user := User{}
	var password sql.NullString
	var googleID sql.NullString
	var role string

	if err := scanner.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&password,
		&googleID,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	user.Password = password.String
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}
	user.Role = Role(role)
	return user, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
