package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/internal/middleware"
	"github.com/voicemint/api/internal/model"
	"github.com/voicemint/api/internal/service"
	"github.com/voicemint/api/pkg/response"
)

type GenerationHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewGenerationHandler(svc *service.GenerationService, v *validator.Validate) *GenerationHandler {
	return &GenerationHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/generate. The run is synchronous: the caller
// gets the artifact URL on success or a kinded error with the matching
// status code.
func (h *GenerationHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", "")
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Run(c.Context(), middleware.GetUserID(c), req.ProjectID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, result)
}
