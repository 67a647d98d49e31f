// Package bootstrap prepares the process-wide runtime shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stemweb/internal/cache"
	"stemweb/internal/config"
	"stemweb/internal/database"
	"stemweb/internal/middleware"
	"stemweb/internal/models"
	"stemweb/internal/observability"
	"stemweb/internal/repository"
	"stemweb/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime is what the server needs to start.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// ShutdownTracing flushes pending spans. It is never nil.
	ShutdownTracing func(context.Context) error
}

// InitRuntime connects to the database and Redis, starts tracing, and in
// development ensures the bootstrap admin exists.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; a nil client disables caching and revocation.
	cache.InitRedis(cfg.RedisURL)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  observability.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	if err := EnsureDevAdmin(ctx, cfg, repository.NewUserRepository(db)); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return &Runtime{DB: db, Redis: cache.GetClient(), ShutdownTracing: shutdownTracing}, nil
}

// EnsureDevAdmin creates or promotes the configured admin account. It only
// acts when APP_ENV is development and DEV_BOOTSTRAP_ADMIN is set.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if cfg == nil || !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		username = "stemweb_admin"
	}
	email := strings.ToLower(strings.TrimSpace(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@stemweb.local"
	}
	if cfg.DevAdminPassword == "" {
		return fmt.Errorf("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsAdmin {
			return nil
		}
		if err := users.SetAdmin(ctx, existing.ID, true); err != nil {
			return err
		}
		middleware.Logger.Info("development admin promoted", slog.String("username", username))
		return nil
	}

	hash, err := service.HashPassword(cfg.DevAdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		IsAdmin:  true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	middleware.Logger.Info("development admin created",
		slog.String("username", username), slog.Uint64("id", uint64(admin.ID)))
	return nil
}
