package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys   map[string]time.Duration
	setErr error
	exErr  error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{keys: map[string]time.Duration{}} }

func (f *fakeRedis) Set(_ context.Context, key string, _ any, ttl time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.keys[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.exErr != nil {
		return redis.NewIntResult(0, f.exErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisDenylist(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedis()
	d := NewRedisDenylist(store)

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-1", 10*time.Minute))
	assert.Equal(t, 10*time.Minute, store.keys["echolater:revoked:jti-1"])

	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisDenylist_SkipsExpiredAndEmpty(t *testing.T) {
	store := newFakeRedis()
	d := NewRedisDenylist(store)

	require.NoError(t, d.Revoke(context.Background(), "jti-1", 0))
	require.NoError(t, d.Revoke(context.Background(), "", time.Minute))
	assert.Empty(t, store.keys)

	revoked, err := d.IsRevoked(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisDenylist_Errors(t *testing.T) {
	store := newFakeRedis()
	store.setErr = errors.New("conn refused")
	store.exErr = errors.New("conn refused")
	d := NewRedisDenylist(store)

	err := d.Revoke(context.Background(), "jti", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis error")

	_, err = d.IsRevoked(context.Background(), "jti")
	require.Error(t, err)
}

func TestNopDenylist(t *testing.T) {
	var d Denylist = NopDenylist{}
	require.NoError(t, d.Revoke(context.Background(), "jti", time.Minute))
	revoked, err := d.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "::not a url")
	require.Error(t, err)
}
