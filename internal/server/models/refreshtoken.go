package models

import "time"

// RefreshToken is an opaque, single-use token exchanged for a new token pair.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token can no longer be redeemed at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
