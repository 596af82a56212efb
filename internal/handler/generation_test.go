package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/pkg/response"
)

// The service is never reached on request-shape failures, so these tests
// run the handler with no backing service at all.
func newGenerateApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	h := NewGenerationHandler(nil, validator.New())
	app.Post("/api/generate", h.Generate)
	return app
}

func TestGenerate_InvalidBody(t *testing.T) {
	app := newGenerateApp(t)

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerate_MissingProjectID(t *testing.T) {
	app := newGenerateApp(t)

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	var body response.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("bad error envelope: %v", err)
	}
	if body.Code != response.CodeValidationError {
		t.Errorf("expected %s, got %s", response.CodeValidationError, body.Code)
	}
	if body.Error == "" {
		t.Errorf("error envelope missing message")
	}
}
