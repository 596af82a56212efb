package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/internal/auth"
)

func newAuthApp(t *testing.T, secret string) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/whoami", NewAuthMiddleware(secret).Authenticate(), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})
	return app
}

func TestAuthenticate(t *testing.T) {
	const secret = "test-secret"
	app := newAuthApp(t, secret)

	token, err := auth.GenerateToken("user-1", "user@example.com", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", fiber.StatusUnauthorized},
		{"valid token", "Bearer " + token, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test failed: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Errorf("got status %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}
