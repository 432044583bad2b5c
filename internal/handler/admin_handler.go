package handler

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/service"
)

const templateFileName = "questions_template.xlsx"

// AdminHandler serves the administrator page, workbook uploads and the template download.
type AdminHandler struct {
	questions service.QuestionAdminService
	logger    zerolog.Logger
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(questions service.QuestionAdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		questions: questions,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register wires admin routes. The template download is public.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/admin_side", middleware.WithAuth(h.dashboard, middleware.AdminOnly))
	router.Post("/upload_questions", middleware.WithAuth(h.upload, middleware.AdminOnly))
	router.Get("/download_template", h.downloadTemplate)
}

func (h *AdminHandler) dashboard(c *fiber.Ctx) error {
	return h.renderDashboard(c, fiber.StatusOK, fiber.Map{})
}

func (h *AdminHandler) upload(c *fiber.Ctx) error {
	// a missing part is reported by the service
	file, _ := c.FormFile("file")

	report, err := h.questions.Upload(c.UserContext(), file)
	if err != nil {
		return h.handleError(c, err)
	}

	return h.renderDashboard(c, fiber.StatusOK, fiber.Map{"Report": report})
}

func (h *AdminHandler) downloadTemplate(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.questions.Template(&buf); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build question template")
		return renderError(c, fiber.StatusInternalServerError, "The template could not be generated.")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment(templateFileName)
	return c.Send(buf.Bytes())
}

func (h *AdminHandler) renderDashboard(c *fiber.Ctx, status int, data fiber.Map) error {
	sets, err := h.questions.Overview(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to summarise question workbook")
		data["Error"] = "The current questions file could not be read."
	}
	data["Sets"] = sets
	return render(c, status, "admin", "Admin", data)
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUploadMissing):
		return h.renderDashboard(c, fiber.StatusBadRequest, fiber.Map{"Error": "No file part"})
	case errors.Is(err, service.ErrUploadTooLarge):
		return h.renderDashboard(c, fiber.StatusRequestEntityTooLarge, fiber.Map{"Error": "The file is too large."})
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return h.renderDashboard(c, fiber.StatusBadRequest, fiber.Map{"Error": "Only .xlsx workbooks are accepted."})
	case errors.Is(err, service.ErrUploadScanFailed), errors.Is(err, service.ErrInvalidWorkbook):
		return h.renderDashboard(c, fiber.StatusBadRequest, fiber.Map{"Error": "The file could not be read as a question workbook."})
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("question upload failed")
		return h.renderDashboard(c, fiber.StatusInternalServerError, fiber.Map{"Error": "The upload could not be stored."})
	}
}
