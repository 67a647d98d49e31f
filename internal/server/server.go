// Package server wires the HTTP routes, middleware chain and handlers for the API.
package server

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "stemweb/docs" // swagger docs
	"stemweb/internal/auth"
	"stemweb/internal/cache"
	"stemweb/internal/config"
	"stemweb/internal/database"
	"stemweb/internal/featureflags"
	"stemweb/internal/middleware"
	"stemweb/internal/models"
	"stemweb/internal/observability"
	"stemweb/internal/repository"
	"stemweb/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	featureFlags   *featureflags.Manager
	postService    *service.PostService
	authService    *service.AuthService
	userService    *service.UserService
}

// NewServer connects to the database and Redis, then builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables caching, token revocation and rate limiting.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.postService = service.NewPostService(s.postRepo)
	s.authService = service.NewAuthService(s.userRepo, auth.NewTokenManager(cfg))
	s.userService = service.NewUserService(s.userRepo)

	return s, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "stemweb API",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err, !s.config.IsProduction())
}

const defaultAllowedOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// SetupMiddleware installs the global chain. Order matters: tracing and the
// request id must exist before the context copy and the access log, and
// CORS precedes the limiter so 429s still carry CORS headers.
func (s *Server) SetupMiddleware(app *fiber.App) {
	chain := []fiber.Handler{
		recover.New(),
		requestid.New(),
		middleware.TracingMiddleware(),
		middleware.ContextMiddleware(),
	}
	if s.promMiddleware != nil {
		chain = append(chain, middleware.MetricsMiddleware(s.promMiddleware))
	}
	chain = append(chain,
		helmet.New(),
		middleware.StructuredLogger(),
		cors.New(cors.Config{
			AllowOrigins:     cmp.Or(s.config.AllowedOrigins, defaultAllowedOrigins),
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowCredentials: true,
			MaxAge:           int((24 * time.Hour).Seconds()),
		}),
		limiter.New(limiter.Config{
			Max:          100,
			Expiration:   time.Minute,
			Next:         func(c *fiber.Ctx) bool { return c.Method() == fiber.MethodOptions },
			KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
			LimitReached: func(c *fiber.Ctx) error {
				return models.RespondWithError(c, fiber.StatusTooManyRequests,
					fiber.NewError(fiber.StatusTooManyRequests, "Request was throttled."))
			},
		}),
	)
	for _, h := range chain {
		app.Use(h)
	}
}

// SetupRoutes configures all routes for the application. Trailing slashes are
// optional because StrictRouting is off.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Home)

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/users", s.rateLimit("signup", 3, 10*time.Minute), s.Register)
	authGroup.Get("/users/me", s.AuthRequired(), s.Me)

	jwtGroup := authGroup.Group("/jwt")
	jwtGroup.Post("/create", s.rateLimit("login", 10, 5*time.Minute), s.CreateToken)
	jwtGroup.Post("/refresh", s.RefreshToken)
	jwtGroup.Post("/verify", s.VerifyToken)
	jwtGroup.Post("/logout", s.AuthRequired(), s.Logout)

	posts := v1.Group("/posts", s.AuthRequired())
	posts.Get("/", s.ListPosts)
	posts.Post("/", s.rateLimit("create_post", 30, time.Minute), s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Patch("/:id", s.PatchPost)
	posts.Delete("/:id", s.DeletePost)

	admin := app.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/", s.AdminSummary)
	admin.Get("/posts", s.AdminListPosts)
	admin.Get("/posts/:id", s.AdminGetPost)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Get("/users", s.AdminListUsers)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// rateLimitBypassEnvs never hit the Redis limiter.
var rateLimitBypassEnvs = map[string]bool{"test": true, "development": true, "stress": true}

func (s *Server) rateLimit(name string, limit int, window time.Duration) fiber.Handler {
	return middleware.RateLimit(s.redis, middleware.RateLimitConfig{
		Name:     name,
		Limit:    limit,
		Window:   window,
		Policy:   middleware.FailOpen,
		Disabled: s.redis == nil || rateLimitBypassEnvs[s.config.Env],
	})
}

// AuthRequired rejects requests without a valid, unrevoked access token.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.authService)
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(middleware.LocalUserID).(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication credentials were not provided."))
		}

		admin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil && models.StatusFor(err) != fiber.StatusNotFound {
			return s.respondError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("You do not have permission to perform this action."))
		}
		return c.Next()
	}
}

// Start builds the app and blocks serving on the configured port.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown drains in-flight requests, then releases the database pool and
// Redis. Close errors are logged, not returned.
func (s *Server) Shutdown(ctx context.Context) error {
	log := middleware.Logger
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Error("HTTP shutdown", slog.Any("error", err))
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("Closing database", slog.Any("error", err))
		}
	}
	switch {
	case s.redis == nil:
	case cache.GetClient() == s.redis:
		cache.Close()
	default:
		if err := s.redis.Close(); err != nil {
			log.Error("Closing Redis", slog.Any("error", err))
		}
	}
	log.Info("Server stopped")
	return nil
}
