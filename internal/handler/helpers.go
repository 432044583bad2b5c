package handler

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/utils"
	"github.com/noah-isme/gema-quiz/internal/views"
)

var fieldLabels = map[string]string{
	"StudentID":       "Student ID",
	"Email":           "E-mail",
	"Password":        "Password",
	"PasswordConfirm": "Password confirmation",
}

// render executes view inside the main layout with the values every page needs.
func render(c *fiber.Ctx, status int, view, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["AppName"] = c.App().Config().AppName
	data["Title"] = title
	if principal, ok := middleware.CurrentPrincipal(c); ok {
		data["User"] = principal.StudentID
		data["IsAdmin"] = principal.IsAdmin()
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = utils.ConsumeFlash(c)
	}

	return c.Status(status).Render(view, data, views.Layout)
}

func renderError(c *fiber.Ctx, status int, message string) error {
	return render(c, status, "error", "Error", fiber.Map{"Message": message})
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// validationMessages turns validator errors into sentences for form pages.
func validationMessages(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required.", label))
		case "email":
			messages = append(messages, "Enter a valid e-mail address.")
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters.", label, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters.", label, fe.Param()))
		case "eqfield":
			messages = append(messages, "Passwords do not match.")
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid.", label))
		}
	}
	return messages
}

// pathParam returns a decoded route parameter.
func pathParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
