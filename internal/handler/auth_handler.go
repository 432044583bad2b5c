package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz/internal/dto"
	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/service"
	"github.com/noah-isme/gema-quiz/internal/utils"
)

const invalidResetLink = "The reset link is invalid or has expired."

// AuthHandler serves registration, login, logout and password reset pages.
type AuthHandler struct {
	auth   service.AuthService
	tokens service.TokenService
	logger zerolog.Logger
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(auth service.AuthService, tokens service.TokenService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		tokens: tokens,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires the public account routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Get("/register", h.registerForm)
	router.Post("/register", h.register)
	router.Get("/login", h.loginForm)
	router.Post("/login", h.login)
	router.Post("/logout", h.logout)
	router.Get("/forgot_password", h.forgotPasswordForm)
	router.Post("/forgot_password", h.forgotPassword)
	router.Get("/reset_password/:token", h.resetPasswordForm)
	router.Post("/reset_password/:token", h.resetPassword)
}

func (h *AuthHandler) registerForm(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "register", "Register", nil)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return render(c, fiber.StatusBadRequest, "register", "Register", fiber.Map{"Error": "The form could not be read."})
	}

	identity, err := h.auth.Register(c.UserContext(), payload)
	if err != nil {
		data := fiber.Map{"StudentID": payload.StudentID, "Email": payload.Email}
		switch {
		case isValidationError(err):
			data["Errors"] = validationMessages(err)
			return render(c, fiber.StatusUnprocessableEntity, "register", "Register", data)
		case errors.Is(err, service.ErrStudentIDExists):
			data["Error"] = "Student ID already exists"
			return render(c, fiber.StatusConflict, "register", "Register", data)
		case errors.Is(err, service.ErrEmailExists):
			data["Error"] = "Email already registered"
			return render(c, fiber.StatusConflict, "register", "Register", data)
		case errors.Is(err, service.ErrUnsafeInput):
			data["Error"] = "Student ID contains unsupported characters"
			return render(c, fiber.StatusUnprocessableEntity, "register", "Register", data)
		default:
			return h.handleError(c, "register", "Register", err)
		}
	}

	requestLogger(h.logger, c).Info().Str("student_id", identity.StudentID).Msg("registration completed")
	utils.SetFlash(c, "Registration successful! Please login.")
	return c.Redirect("/login", fiber.StatusFound)
}

func (h *AuthHandler) loginForm(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "login", "Log in", nil)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return render(c, fiber.StatusBadRequest, "login", "Log in", fiber.Map{"Error": "The form could not be read."})
	}

	identity, err := h.auth.Authenticate(c.UserContext(), payload)
	if err != nil {
		data := fiber.Map{"StudentID": strings.TrimSpace(payload.StudentID)}
		switch {
		case isValidationError(err), errors.Is(err, service.ErrInvalidCredentials):
			data["Error"] = "Invalid credentials"
			return render(c, fiber.StatusUnauthorized, "login", "Log in", data)
		default:
			return h.handleError(c, "login", "Log in", err)
		}
	}

	token, expires, err := h.tokens.IssueSession(identity)
	if err != nil {
		return h.handleError(c, "login", "Log in", err)
	}
	middleware.SetSessionCookie(c, token, expires)

	requestLogger(h.logger, c).Info().Str("student_id", identity.StudentID).Str("role", identity.Role).Msg("login succeeded")
	return c.Redirect("/", fiber.StatusFound)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	middleware.ClearSessionCookie(c)
	utils.SetFlash(c, "You have been logged out.")
	return c.Redirect("/login", fiber.StatusFound)
}

func (h *AuthHandler) forgotPasswordForm(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "forgot_password", "Forgot password", nil)
}

func (h *AuthHandler) forgotPassword(c *fiber.Ctx) error {
	var payload dto.ForgotPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return render(c, fiber.StatusBadRequest, "forgot_password", "Forgot password", fiber.Map{"Error": "The form could not be read."})
	}

	if err := h.auth.RequestPasswordReset(c.UserContext(), payload); err != nil {
		if isValidationError(err) {
			return render(c, fiber.StatusUnprocessableEntity, "forgot_password", "Forgot password", fiber.Map{"Error": "Enter a valid e-mail address."})
		}
		return h.handleError(c, "forgot_password", "Forgot password", err)
	}

	return render(c, fiber.StatusOK, "forgot_password", "Forgot password", fiber.Map{"Sent": true})
}

func (h *AuthHandler) resetPasswordForm(c *fiber.Ctx) error {
	token := c.Params("token")
	if _, err := h.auth.VerifyResetToken(c.UserContext(), token); err != nil {
		return render(c, fiber.StatusBadRequest, "reset_password", "Reset password", fiber.Map{"Error": invalidResetLink})
	}
	return render(c, fiber.StatusOK, "reset_password", "Reset password", fiber.Map{"Token": token})
}

func (h *AuthHandler) resetPassword(c *fiber.Ctx) error {
	token := c.Params("token")

	var payload dto.ResetPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return render(c, fiber.StatusBadRequest, "reset_password", "Reset password", fiber.Map{"Error": "The form could not be read.", "Token": token})
	}

	if err := h.auth.ResetPassword(c.UserContext(), token, payload); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			return render(c, fiber.StatusBadRequest, "reset_password", "Reset password", fiber.Map{"Error": invalidResetLink})
		case isValidationError(err):
			return render(c, fiber.StatusUnprocessableEntity, "reset_password", "Reset password", fiber.Map{
				"Errors": validationMessages(err),
				"Token":  token,
			})
		default:
			return h.handleError(c, "reset_password", "Reset password", err)
		}
	}

	utils.SetFlash(c, "Your password has been updated. Please log in.")
	return c.Redirect("/login", fiber.StatusFound)
}

func (h *AuthHandler) handleError(c *fiber.Ctx, view, title string, err error) error {
	if errors.Is(err, service.ErrIdentityStoreDown) {
		requestLogger(h.logger, c).Error().Err(err).Msg("identity store unavailable")
		return render(c, fiber.StatusServiceUnavailable, view, title, fiber.Map{
			"Error": "The account service is unavailable. Please try again later.",
		})
	}

	requestLogger(h.logger, c).Error().Err(err).Str("view", view).Msg("account request failed")
	return renderError(c, fiber.StatusInternalServerError, "An unexpected error occurred.")
}
