package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/internal/apperr"
)

// Error codes
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeGenerationError = "GENERATION_ERROR"
	CodeServiceError    = "SERVICE_ERROR"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message, details string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error:   message,
		Details: details,
		Code:    code,
	})
}

// FromError maps a kinded error onto the wire envelope. The kind decides
// the status; no message sniffing happens here.
func FromError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	code := codeForKind(apperr.KindOf(err))
	return Error(c, status, code, messageForKind(apperr.KindOf(err)), err.Error())
}

func codeForKind(kind apperr.Kind) string {
	switch kind {
	case apperr.NotFound:
		return CodeNotFound
	case apperr.InvalidInput:
		return CodeValidationError
	case apperr.RateLimited:
		return CodeRateLimited
	case apperr.AuthFailed:
		return CodeUnauthorized
	case apperr.QuotaExceeded:
		return CodeQuotaExceeded
	case apperr.ProviderUnavailable, apperr.EmptyResult:
		return CodeGenerationError
	default:
		return CodeServiceError
	}
}

func messageForKind(kind apperr.Kind) string {
	switch kind {
	case apperr.NotFound:
		return "Not found"
	case apperr.InvalidInput:
		return "Invalid input"
	case apperr.RateLimited:
		return "Rate limit exceeded"
	case apperr.AuthFailed:
		return "Authentication failed"
	case apperr.QuotaExceeded:
		return "Provider quota exceeded"
	case apperr.ProviderUnavailable, apperr.EmptyResult:
		return "Voice generation failed"
	default:
		return "Internal server error"
	}
}

func ValidationError(c *fiber.Ctx, message, details string) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, "")
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, "")
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", "")
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, "")
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}
