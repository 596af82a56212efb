package handler

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voicemint/api/internal/middleware"
	"github.com/voicemint/api/internal/model"
	"github.com/voicemint/api/internal/service"
	"github.com/voicemint/api/pkg/response"
)

type ProjectHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewProjectHandler(svc *service.ProjectService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req model.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", "")
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.service.Create(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, project)
}

// Get handles GET /api/projects/:projectId
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", "")
	}

	project, err := h.service.Get(c.Context(), middleware.GetUserID(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.OK(c, project)
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.service.List(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return response.OK(c, projects)
}

// UpdateScript handles PUT /api/projects/:projectId/script
func (h *ProjectHandler) UpdateScript(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", "")
	}

	var req model.UpdateScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", "")
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.UpdateScript(c.Context(), middleware.GetUserID(c), projectID, req.ScriptText); err != nil {
		return response.FromError(c, err)
	}
	return response.OK(c, fiber.Map{"success": true})
}

// UploadSample handles POST /api/projects/:projectId/samples with a
// multipart clip recorded in the studio.
func (h *ProjectHandler) UploadSample(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", "")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "Audio file is required", "")
	}

	clipNumber, err := strconv.Atoi(c.FormValue("clipNumber"))
	if err != nil || clipNumber < 1 {
		return response.ValidationError(c, "Valid clipNumber is required", "")
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(c.FormValue("duration")), 64)

	file, err := fileHeader.Open()
	if err != nil {
		return response.ValidationError(c, "Could not read uploaded file", "")
	}
	defer file.Close()

	result, err := h.service.AddSample(c.Context(), middleware.GetUserID(c), projectID, clipNumber, fileHeader.Filename, file, duration)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, result)
}

func formatValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		parts := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			parts = append(parts, e.Field()+": "+e.Tag())
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
