package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/utils"
)

// ErrorHandler renders errors that escaped a handler. JSON routes get the API envelope; pages get the error view.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	logger = logger.With().Str("component", "error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "An unexpected error occurred."

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			switch status {
			case fiber.StatusNotFound:
				message = "Page not found."
			case fiber.StatusRequestEntityTooLarge:
				message = "The request is too large."
			case fiber.StatusMethodNotAllowed:
				message = "Method not allowed."
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).
				Str("correlation_id", middleware.GetCorrelationID(c)).
				Str("path", c.Path()).
				Msg("unhandled request error")
		}

		if strings.HasPrefix(c.Path(), "/api/") {
			return utils.Fail(c, status, message, nil)
		}
		if renderErr := renderError(c, status, message); renderErr != nil {
			return c.Status(status).SendString(message)
		}
		return nil
	}
}
