package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/internal/model"
	"github.com/voicemint/api/internal/service"
	"github.com/voicemint/api/pkg/response"
)

type ScriptHandler struct {
	service   *service.ScriptService
	validator *validator.Validate
}

func NewScriptHandler(svc *service.ScriptService, v *validator.Validate) *ScriptHandler {
	return &ScriptHandler{
		service:   svc,
		validator: v,
	}
}

// Suggest handles POST /api/scripts/suggest
func (h *ScriptHandler) Suggest(c *fiber.Ctx) error {
	var req model.ScriptSuggestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", "")
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Suggest(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}
