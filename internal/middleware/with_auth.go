package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-quiz/internal/utils"
)

// LoginPath is where callers without the required capability are sent.
const LoginPath = "/login"

// WithAuth runs handler only when the caller holds capability.
// Anonymous callers are redirected to the login page; authenticated callers lacking a role
// are redirected there too, with a notice.
func WithAuth(handler fiber.Handler, capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Allowed(c, capability) {
			return handler(c)
		}

		if _, ok := CurrentPrincipal(c); ok {
			utils.SetFlash(c, "You do not have permission to access that page.")
		}
		return c.Redirect(LoginPath, fiber.StatusFound)
	}
}
