// Package auth issues and verifies access tokens and tracks revoked ones.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims of an access token. The registered ID (jti) is
// what logout puts on the denylist.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// timeNow is a seam for tests.
var timeNow = time.Now

// GenerateToken signs an HS256 access token for the user.
func GenerateToken(userID, email string, secretKey []byte, validityDuration time.Duration) (string, *Claims, error) {
	now := timeNow()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Email:  email,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// ParseToken verifies the signature and expiry of tokenString.
// Expired tokens yield common.ErrTokenExpired, anything else wrong with the
// token yields an error wrapping common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(timeNow))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// RemainingValidity is how long the token stays valid after now; never negative.
func (c *Claims) RemainingValidity(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
