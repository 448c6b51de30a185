package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "echolater:revoked:"

// Denylist remembers revoked access token ids until the tokens would have
// expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// redisStore is the part of redis.Cmdable the denylist needs.
type redisStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDenylist keeps revoked ids as expiring keys echolater:revoked:<jti>.
type RedisDenylist struct {
	client redisStore
}

func NewRedisDenylist(client redisStore) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// NopDenylist is used when no Redis is configured: nothing is ever revoked
// and access tokens live until they expire.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }

func (NopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// NewRedisClient parses url and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
