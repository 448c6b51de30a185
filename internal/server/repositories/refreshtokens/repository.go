// Package refreshtokens stores the opaque refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/echolater/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. It returns
	// common.ErrorNotFound when the token was not there, so exactly one of
	// two concurrent redeemers succeeds.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every refresh token of userID, signing the user
	// out of all sessions.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired purges tokens whose expiry is not after before and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
