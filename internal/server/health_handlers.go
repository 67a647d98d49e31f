package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 5 * time.Second

// LivenessCheck godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

type dependencyCheck struct {
	name string
	ping func(context.Context) error
}

// dependencies lists what readiness pings. Redis is optional: without a
// client it is reported as "unavailable" and does not fail readiness.
func (s *Server) dependencies() []dependencyCheck {
	checks := []dependencyCheck{{name: "database", ping: func(ctx context.Context) error {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}}
	if s.redis != nil {
		checks = append(checks, dependencyCheck{name: "redis", ping: func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}})
	}
	return checks
}

// ReadinessCheck godoc
// @Summary Readiness probe
// @Description 503 when the database or a configured Redis does not answer a ping.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	results := fiber.Map{}
	ready := true
	if s.redis == nil {
		results["redis"] = "unavailable"
	}
	for _, dep := range s.dependencies() {
		if err := dep.ping(ctx); err != nil {
			results[dep.name] = "unhealthy"
			ready = false
			continue
		}
		results[dep.name] = "healthy"
	}

	status, overall := fiber.StatusOK, "healthy"
	if !ready {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{"status": overall, "checks": results, "time": time.Now()})
}
