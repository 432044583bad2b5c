package utils

import (
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie carries a one-shot notice across a redirect.
const FlashCookie = "quiz_flash"

// SetFlash stores message for the next rendered page.
func SetFlash(c *fiber.Ctx, message string) {
	if message == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

// ConsumeFlash returns the pending notice, if any, and clears it.
func ConsumeFlash(c *fiber.Ctx) string {
	raw := c.Cookies(FlashCookie)
	if raw == "" {
		return ""
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return ""
	}
	return string(decoded)
}
