package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when an operation needs Redis and none is configured.
var ErrUnavailable = errors.New("cache unavailable")

// BlacklistToken marks a token id as revoked until ttl elapses.
func BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted reports whether jti was revoked. Without Redis nothing is revoked.
func IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
