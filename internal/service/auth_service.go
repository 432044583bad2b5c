package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz/internal/dto"
	"github.com/noah-isme/gema-quiz/internal/models"
	"github.com/noah-isme/gema-quiz/internal/repository"
)

var (
	// ErrStudentIDExists indicates the student identifier is already registered.
	ErrStudentIDExists = errors.New("student ID already exists")
	// ErrEmailExists indicates the e-mail address is already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials indicates the student ID or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityStoreDown indicates the identity store could not serve the request.
	ErrIdentityStoreDown = errors.New("identity store unavailable")
	// ErrUnsafeInput indicates a form value carried markup.
	ErrUnsafeInput = errors.New("input contains unsupported characters")
)

// AuthService registers, authenticates and resets passwords of identities.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (models.Identity, error)
	Authenticate(ctx context.Context, payload dto.LoginRequest) (models.Identity, error)
	RequestPasswordReset(ctx context.Context, payload dto.ForgotPasswordRequest) error
	VerifyResetToken(ctx context.Context, token string) (string, error)
	ResetPassword(ctx context.Context, token string, payload dto.ResetPasswordRequest) error
}

type authService struct {
	identities repository.IdentityRepository
	tokens     TokenService
	mailer     Mailer
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	baseURL    string
	logger     zerolog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(identities repository.IdentityRepository, tokens TokenService, mailer Mailer, validate *validator.Validate, baseURL string, logger zerolog.Logger) AuthService {
	return &authService{
		identities: identities,
		tokens:     tokens,
		mailer:     mailer,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (models.Identity, error) {
	payload.StudentID = strings.TrimSpace(payload.StudentID)
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))

	if err := s.validator.Struct(payload); err != nil {
		return models.Identity{}, err
	}
	if s.sanitizer.Sanitize(payload.StudentID) != payload.StudentID {
		return models.Identity{}, ErrUnsafeInput
	}

	if _, err := s.identities.FindByStudentID(ctx, payload.StudentID); err == nil {
		return models.Identity{}, ErrStudentIDExists
	} else if !errors.Is(err, repository.ErrIdentityNotFound) {
		return models.Identity{}, s.storeError(err)
	}

	if _, err := s.identities.FindByEmail(ctx, payload.Email); err == nil {
		return models.Identity{}, ErrEmailExists
	} else if !errors.Is(err, repository.ErrIdentityNotFound) {
		return models.Identity{}, s.storeError(err)
	}

	identity := models.Identity{
		StudentID: payload.StudentID,
		Email:     payload.Email,
		Role:      models.RoleStudent,
	}
	if err := identity.SetPassword(payload.Password); err != nil {
		return models.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.identities.Create(ctx, &identity); err != nil {
		if errors.Is(err, repository.ErrIdentityConflict) {
			return models.Identity{}, ErrStudentIDExists
		}
		return models.Identity{}, s.storeError(err)
	}

	s.logger.Info().Str("student_id", identity.StudentID).Msg("identity registered")
	return identity, nil
}

func (s *authService) Authenticate(ctx context.Context, payload dto.LoginRequest) (models.Identity, error) {
	payload.StudentID = strings.TrimSpace(payload.StudentID)
	if err := s.validator.Struct(payload); err != nil {
		return models.Identity{}, err
	}

	identity, err := s.identities.FindByStudentID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, s.storeError(err)
	}

	if !identity.CheckPassword(payload.Password) {
		s.logger.Warn().Str("student_id", payload.StudentID).Msg("login rejected")
		return models.Identity{}, ErrInvalidCredentials
	}

	return identity, nil
}

// RequestPasswordReset mails a reset link when the address belongs to an identity.
// Unknown addresses and delivery failures are logged only, so callers cannot probe for accounts.
func (s *authService) RequestPasswordReset(ctx context.Context, payload dto.ForgotPasswordRequest) error {
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	identity, err := s.identities.FindByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			s.logger.Info().Str("email", maskEmailAddress(payload.Email)).Msg("password reset requested for unknown email")
			return nil
		}
		return s.storeError(err)
	}

	token, err := s.tokens.IssueResetToken(identity.Email)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	message := MailMessage{
		To:      identity.Email,
		Subject: "Password Reset Request",
		Body:    fmt.Sprintf("Your password reset link is %s/reset_password/%s", s.baseURL, token),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		s.logger.Error().Err(err).Str("email", maskEmailAddress(identity.Email)).Msg("failed to send reset email")
	}

	return nil
}

func (s *authService) VerifyResetToken(_ context.Context, token string) (string, error) {
	return s.tokens.ParseResetToken(token)
}

func (s *authService) ResetPassword(ctx context.Context, token string, payload dto.ResetPasswordRequest) error {
	email, err := s.tokens.ParseResetToken(token)
	if err != nil {
		return ErrInvalidResetToken
	}
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	hash, err := models.HashPassword(payload.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.identities.UpdatePassword(ctx, email, hash); err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return ErrInvalidResetToken
		}
		return s.storeError(err)
	}

	s.logger.Info().Str("email", maskEmailAddress(email)).Msg("password reset")
	return nil
}

func (s *authService) storeError(err error) error {
	s.logger.Error().Err(err).Msg("identity store request failed")
	return fmt.Errorf("%w: %v", ErrIdentityStoreDown, err)
}
