// Package cache holds the process-wide Redis client and the helpers built on
// it: cache-aside reads, key invalidation and the JWT blacklist. Every helper
// degrades to a no-op when no client is configured.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stemweb/internal/middleware"
	"stemweb/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// errorCounter feeds failed commands into the redis error metric.
// A cache miss (redis.Nil) is not a failure.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countError(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countError("pipeline", err)
		return err
	}
}

func countError(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(op).Inc()
	}
}

func options(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to addr, a host:port or redis:// URL. When the address
// is bad or the server does not answer, the shared client is left nil.
func InitRedis(addr string) {
	client = nil

	opts, err := options(addr)
	if err != nil {
		middleware.Logger.Warn("Redis disabled, bad address", slog.String("addr", addr), slog.Any("error", err))
		return
	}

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable, running without cache", slog.String("addr", opts.Addr), slog.Any("error", err))
		_ = c.Close()
		return
	}

	c.AddHook(errorCounter{})
	client = c
	middleware.Logger.Info("Redis connected", slog.String("addr", opts.Addr))
}

// SetClient installs c as the shared client.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

func GetClient() *redis.Client {
	return client
}

// Close closes and forgets the shared client.
func Close() {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		middleware.Logger.Error("Closing Redis failed", slog.Any("error", err))
	}
	client = nil
}
