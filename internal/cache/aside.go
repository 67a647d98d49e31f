package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"stemweb/internal/middleware"
	"stemweb/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside loads key into dest, calling fetch to populate dest on a miss.
// Redis failures degrade to calling fetch directly. Errors from fetch are
// returned unchanged and nothing is cached.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
		client.Del(ctx, key)
	case errors.Is(err, redis.Nil):
	default:
		observability.CacheLookups.WithLabelValues("error").Inc()
		return fetch()
	}

	observability.CacheLookups.WithLabelValues("miss").Inc()
	if err := fetch(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
