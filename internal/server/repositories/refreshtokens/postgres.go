// Package refreshtokens provides a PostgreSQL-backed repository for the
// refresh tokens issued on login and rotated on refresh.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/models"
)

// PostgresRepository stores refresh tokens over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a refresh token for userID that stops being valid at expiresAt.
func (r *PostgresRepository) Create(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the refresh token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1
	`
	rt := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

// Delete removes the token. It returns common.ErrorNotFound when no row was
// deleted, which is how a concurrent redeemer of the same token loses.
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteByUser removes every refresh token issued to userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens whose expiry is at or before the given time
// and reports how many rows went away.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
