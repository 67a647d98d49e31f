package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"stemweb/internal/auth"
	"stemweb/internal/config"
	"stemweb/internal/database"
	"stemweb/internal/models"
	"stemweb/internal/service"
	"stemweb/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "SecurePass12!@"

type testEnv struct {
	server *Server
	app    *fiber.App
	mr     *miniredis.Miniredis
	tokens *auth.TokenManager
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret-key-that-is-at-least-32-chars",
		AccessTokenTTLMinutes: 5,
		RefreshTokenTTLHours:  1,
		Port:                  "0",
		Env:                   "test",
		FeatureFlags:          "homepage_recent_posts=on",
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func setupTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s, err := NewServerWithDeps(cfg, setupTestDB(t), rdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	return &testEnv{
		server: s,
		app:    s.App(),
		mr:     mr,
		tokens: auth.NewTokenManager(cfg),
	}
}

// createUser registers an account and returns it with an access token.
func (e *testEnv) createUser(t *testing.T, username string, admin bool) (*models.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := e.server.authService.Register(ctx, validation.Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	if admin {
		require.NoError(t, e.server.userRepo.SetAdmin(ctx, user.ID, true))
	}

	pair, err := e.server.authService.Login(ctx, service.LoginInput{Username: username, Password: testPassword})
	require.NoError(t, err)
	return user, pair.Access
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, data
}

func TestNewServerWithDeps_RequiresDB(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestHealthChecks(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"redis":"healthy"`)

	env.mr.Close()
	resp, body = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), `"redis":"unhealthy"`)
}

func TestReadinessWithoutRedis(t *testing.T) {
	s, err := NewServerWithDeps(testConfig(), setupTestDB(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"redis":"unavailable"`)
	assert.Contains(t, string(body), `"database":"healthy"`)
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	env := setupTestServer(t)

	resp, body := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)

	env.do(t, http.MethodGet, "/health/live", "", nil)
	resp, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestHome(t *testing.T) {
	t.Run("welcome without posts", func(t *testing.T) {
		env := setupTestServer(t)
		resp, body := env.do(t, http.MethodGet, "/", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, string(body), "Welcome")
		assert.NotContains(t, string(body), "Recent posts")
	})

	t.Run("lists recent titles when flag on", func(t *testing.T) {
		env := setupTestServer(t)
		require.NoError(t, env.server.postRepo.Create(context.Background(),
			&models.Post{Title: "Test Post 1", Author: "Carrington Muleya", Content: "Test Post 1"}))

		_, body := env.do(t, http.MethodGet, "/", "", nil)
		assert.Contains(t, string(body), "Welcome")
		assert.Contains(t, string(body), "<li>Test Post 1</li>")
	})

	t.Run("flag off hides titles", func(t *testing.T) {
		env := setupTestServer(t, func(c *config.Config) { c.FeatureFlags = "homepage_recent_posts=off" })
		require.NoError(t, env.server.postRepo.Create(context.Background(),
			&models.Post{Title: "Hidden", Author: "a", Content: "c"}))

		_, body := env.do(t, http.MethodGet, "/", "", nil)
		assert.Contains(t, string(body), "Welcome")
		assert.NotContains(t, string(body), "Hidden")
	})
}
