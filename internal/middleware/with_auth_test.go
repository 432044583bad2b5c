package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/models"
	"github.com/noah-isme/gema-quiz/internal/utils"
)

type stubParser map[string]models.Principal

func (s stubParser) ParseSession(token string) (models.Principal, error) {
	principal, ok := s[token]
	if !ok {
		return models.Principal{}, errors.New("invalid")
	}
	return principal, nil
}

func newGateApp(capability middleware.Capability) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Session(stubParser{
		"student-token": {StudentID: "S1", Role: "student"},
		"admin-token":   {StudentID: "A1", Role: "admin"},
	}))
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		principal, _ := middleware.CurrentPrincipal(c)
		return c.SendString(principal.StudentID)
	}, capability))
	return app
}

func perform(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func hasCookie(resp *http.Response, name string) bool {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name && cookie.Value != "" {
			return true
		}
	}
	return false
}

func TestWithAuthRedirectsAnonymous(t *testing.T) {
	resp := perform(t, newGateApp(middleware.Authenticated), "")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, middleware.LoginPath, resp.Header.Get("Location"))
	require.False(t, hasCookie(resp, utils.FlashCookie))
}

func TestWithAuthRedirectsInvalidSession(t *testing.T) {
	resp := perform(t, newGateApp(middleware.Authenticated), "forged")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, middleware.LoginPath, resp.Header.Get("Location"))
}

func TestWithAuthAllowsStudent(t *testing.T) {
	resp := perform(t, newGateApp(middleware.Authenticated), "student-token")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithAuthAdminOnlyRejectsStudentWithNotice(t *testing.T) {
	resp := perform(t, newGateApp(middleware.AdminOnly), "student-token")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, middleware.LoginPath, resp.Header.Get("Location"))
	require.True(t, hasCookie(resp, utils.FlashCookie))
}

func TestWithAuthAdminOnlyAllowsAdmin(t *testing.T) {
	resp := perform(t, newGateApp(middleware.AdminOnly), "admin-token")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionCookieHelpers(t *testing.T) {
	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		middleware.SetSessionCookie(c, "student-token", time.Now().Add(time.Hour))
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		middleware.ClearSessionCookie(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	require.True(t, hasCookie(resp, middleware.SessionCookie))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/logout", nil), -1)
	require.NoError(t, err)
	require.False(t, hasCookie(resp, middleware.SessionCookie))
}
