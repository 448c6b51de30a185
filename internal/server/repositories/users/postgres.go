package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user and fills in the generated id and timestamps.
// A duplicate email yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, password_hash, nickname, avatar)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Nickname, user.Avatar).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const selectUser = `SELECT id, email, password_hash, nickname, avatar, created_at, updated_at FROM users`

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Nickname, &user.Avatar, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByEmail looks a user up by email. If not found, it returns
// common.ErrorNotFound.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1`, email)
}

// GetByID looks a user up by id. If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

// UpdateProfile sets nickname and avatar. A nil pointer keeps the stored value.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, nickname, avatar *string) (*models.User, error) {
	query :=
		`UPDATE users SET
			nickname = COALESCE($2, nickname),
			avatar = COALESCE($3, avatar),
			updated_at = now()
		 WHERE id = $1
		 RETURNING id, email, password_hash, nickname, avatar, created_at, updated_at
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id, nullableString(nickname), nullableString(avatar)).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Nickname, &user.Avatar, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// UpdatePassword replaces the stored password hash. Exactly one row must be
// affected.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
