package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-quiz/internal/models"
)

var (
	// ErrInvalidSession indicates a session cookie failed verification.
	ErrInvalidSession = errors.New("invalid session")
	// ErrInvalidResetToken covers tampered, malformed and expired reset tokens alike.
	ErrInvalidResetToken = errors.New("the reset link is invalid or has expired")
)

const (
	sessionAudience = "quiz-session"
	resetAudience   = "password-reset"
)

// TokenService signs and verifies session and password reset tokens.
type TokenService interface {
	IssueSession(identity models.Identity) (string, time.Time, error)
	ParseSession(token string) (models.Principal, error)
	IssueResetToken(email string) (string, error)
	ParseResetToken(token string) (string, error)
}

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// NewTokenService builds an HS256 token service keyed by secret.
func NewTokenService(secret string, sessionTTL, resetTTL time.Duration) TokenService {
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &tokenService{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

func (s *tokenService) IssueSession(identity models.Identity) (string, time.Time, error) {
	expires := s.now().Add(s.sessionTTL)
	token, err := s.sign(identity.StudentID, sessionAudience, models.NormalizeRole(identity.Role), expires)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *tokenService) ParseSession(token string) (models.Principal, error) {
	claims, err := s.parse(token, sessionAudience)
	if err != nil {
		return models.Principal{}, ErrInvalidSession
	}
	return models.Principal{StudentID: claims.Subject, Role: claims.Role}, nil
}

func (s *tokenService) IssueResetToken(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	return s.sign(email, resetAudience, "", s.now().Add(s.resetTTL))
}

// ParseResetToken returns the e-mail embedded in a valid reset token.
func (s *tokenService) ParseResetToken(token string) (string, error) {
	claims, err := s.parse(token, resetAudience)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidResetToken
	}
	return claims.Subject, nil
}

func (s *tokenService) sign(subject, audience, role string, expires time.Time) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *tokenService) parse(token, audience string) (*tokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token not valid")
	}
	return claims, nil
}
