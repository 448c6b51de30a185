// Package users declares the account repository and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/echolater/internal/server/models"
)

type Repository interface {
	// Create inserts the user and fills ID and timestamps. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateProfile changes only the non-nil fields and returns the stored row.
	UpdateProfile(ctx context.Context, id string, nickname, avatar *string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
