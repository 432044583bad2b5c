package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func allowedApp(role string, capability Capability) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("user_id", "S1")
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/", func(c *fiber.Ctx) error {
		if Allowed(c, capability) {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.SendStatus(fiber.StatusTeapot)
	})
	return app
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		name       string
		role       string
		capability Capability
		want       int
	}{
		{"anonymous authenticated", "", Authenticated, fiber.StatusTeapot},
		{"student authenticated", "student", Authenticated, fiber.StatusOK},
		{"admin authenticated", "admin", Authenticated, fiber.StatusOK},
		{"student admin only", "student", AdminOnly, fiber.StatusTeapot},
		{"admin admin only", "Admin", AdminOnly, fiber.StatusOK},
		{"anonymous admin only", "", AdminOnly, fiber.StatusTeapot},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			resp, err := allowedApp(tc.role, tc.capability).Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
