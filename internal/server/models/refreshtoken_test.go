package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenExpired(t *testing.T) {
	now := time.Date(2024, time.April, 3, 10, 0, 0, 0, time.UTC)
	tok := &RefreshToken{ExpiresAt: now}

	assert.True(t, tok.Expired(now), "expiry instant itself is expired")
	assert.True(t, tok.Expired(now.Add(time.Second)))
	assert.False(t, tok.Expired(now.Add(-time.Second)))
}
