package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-quiz/internal/config"
	"github.com/noah-isme/gema-quiz/internal/handler"
	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuizHandler  *handler.QuizHandler
	AuthHandler  *handler.AuthHandler
	AdminHandler *handler.AdminHandler
	HealthProbes map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	app.Get(middleware.MetricsPath, observability.MetricsHandler())

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(app)
	}
	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(app)
	}
	if deps.QuizHandler != nil {
		deps.QuizHandler.Register(app)
	}
}
