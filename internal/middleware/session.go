package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-quiz/internal/models"
)

// SessionCookie is the name of the signed session cookie.
const SessionCookie = "quiz_session"

// SessionParser verifies a session token and returns its principal.
type SessionParser interface {
	ParseSession(token string) (models.Principal, error)
}

// Session attaches the authenticated principal to the request when the session cookie verifies.
// An invalid cookie is cleared and the request continues anonymously.
func Session(parser SessionParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Cookies(SessionCookie))
		if token == "" {
			return c.Next()
		}

		principal, err := parser.ParseSession(token)
		if err != nil || principal.StudentID == "" {
			ClearSessionCookie(c)
			return c.Next()
		}

		c.Locals("user_id", principal.StudentID)
		c.Locals("user_role", models.NormalizeRole(principal.Role))
		return c.Next()
	}
}

// CurrentPrincipal returns the principal attached by Session, if any.
func CurrentPrincipal(c *fiber.Ctx) (models.Principal, bool) {
	studentID, _ := c.Locals("user_id").(string)
	if studentID == "" {
		return models.Principal{}, false
	}
	role, _ := c.Locals("user_role").(string)
	return models.Principal{StudentID: studentID, Role: role}, true
}

// SetSessionCookie stores a signed session token on the response.
func SetSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
