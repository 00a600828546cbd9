package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/auth"
	"github.com/sakif/resource-showcase/internal/model"
)

// AuthService issues local tokens after a password or GitHub sign-in.
// There is no user table: the single admin is described by configuration.
type AuthService struct {
	tokens       *auth.TokenService
	passwords    *auth.PasswordService
	adminEmail   string
	passwordHash string
	logger       *slog.Logger
}

// AdminCredentials describes the configured administrator.
type AdminCredentials struct {
	Email        string
	PasswordHash string // bcrypt; empty disables password sign-in
}

func NewAuthService(
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	admin AdminCredentials,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		tokens:       tokens,
		passwords:    passwords,
		adminEmail:   strings.TrimSpace(admin.Email),
		passwordHash: admin.PasswordHash,
		logger:       logger,
	}
}

// Session is what a successful sign-in returns to the browser.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Identity  *model.Identity `json:"identity"`
}

var errBadCredentials = apperror.Unauthorized("Invalid email or password")

// PasswordLogin checks email and password against the configured admin.
// A wrong email and a wrong password produce the same error.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (*Session, error) {
	if s.tokens == nil || s.passwordHash == "" || s.adminEmail == "" {
		return nil, apperror.Unavailable("password sign-in", errors.New("admin credentials not configured"))
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	// The hash is always compared so a wrong email costs the same as a
	// wrong password.
	pwErr := s.passwords.Verify(s.passwordHash, password)
	if !strings.EqualFold(strings.TrimSpace(email), s.adminEmail) || pwErr != nil {
		if pwErr != nil && !errors.Is(pwErr, auth.ErrInvalidPassword) {
			s.logger.Error("password check failed", slog.String("error", pwErr.Error()))
		}
		s.logger.Warn("rejected password sign-in", slog.String("email", email))
		return nil, errBadCredentials
	}

	return s.issue(model.Identity{
		UID:           "local:" + strings.ToLower(s.adminEmail),
		Email:         s.adminEmail,
		EmailVerified: true,
		Provider:      "password",
	})
}

// GitHubLogin issues a session for an allowed GitHub account.
func (s *AuthService) GitHubLogin(ctx context.Context, u *auth.GitHubUser, allowed bool) (*Session, error) {
	if s.tokens == nil {
		return nil, apperror.Unavailable("GitHub sign-in", errors.New("token signing not configured"))
	}
	if u == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if !allowed {
		s.logger.Warn("GitHub account not allowed", slog.String("login", u.Login))
		return nil, apperror.Forbidden("This GitHub account may not manage resources")
	}

	return s.issue(model.Identity{
		UID:           "github:" + strconv.FormatInt(u.ID, 10),
		Email:         u.Email,
		EmailVerified: u.Email != "",
		Provider:      "github",
	})
}

func (s *AuthService) issue(id model.Identity) (*Session, error) {
	token, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", id.UID, err)
	}
	s.logger.Info("session issued",
		slog.String("uid", id.UID),
		slog.String("provider", id.Provider),
	)
	return &Session{Token: token, ExpiresAt: exp, Identity: &id}, nil
}
