package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/internal/auth"
	"github.com/voicemint/api/pkg/response"
)

// AuthMiddleware validates HMAC-signed JWTs and exposes the caller's
// identity on the request context.
type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Authenticate validates the bearer token from the Authorization header.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims, err := auth.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}
