// Package middleware provides logging, authentication and rate limiting middleware for the application.
package middleware

import (
	"context"
	"strings"

	"stemweb/internal/auth"
	"stemweb/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "userID"
	LocalUsername = "username"
	LocalClaims   = "claims"
)

// TokenVerifier validates a raw access token.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// authSchemes are the accepted Authorization header prefixes.
var authSchemes = []string{"Bearer", "JWT"}

// BearerToken extracts the token from "Bearer <t>" or "JWT <t>".
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	for _, scheme := range authSchemes {
		if strings.EqualFold(parts[0], scheme) {
			return parts[1], true
		}
	}
	return "", false
}

// AuthRequired enforces a valid access token and stores the caller in locals.
func AuthRequired(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication credentials were not provided."))
		}

		token, ok := BearerToken(header)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		claims, err := v.Authenticate(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalClaims, claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))

		return c.Next()
	}
}
