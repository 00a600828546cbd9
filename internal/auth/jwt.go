package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/resource-showcase/internal/model"
)

const issuer = "resource-showcase"

// DefaultTokenTTL is used when NewTokenService gets a zero TTL.
const DefaultTokenTTL = 12 * time.Hour

// TokenService issues and verifies HS256 tokens signed with a shared secret.
//
// These are the tokens handed out by POST /auth/token and the GitHub
// callback. They carry the same identity fields as a hosted ID token, so the
// rest of the app cannot tell which sign-in path was used.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ Verifier = (*TokenService)(nil)

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// claims is the token payload: registered claims plus identity fields.
type claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Provider      string `json:"provider,omitempty"`
}

// Issue signs a token for id and returns it with its expiry.
func (s *TokenService) Issue(id model.Identity) (string, time.Time, error) {
	if id.UID == "" {
		return "", time.Time{}, errors.New("auth: identity has no uid")
	}
	now := s.now()
	exp := now.Add(s.ttl)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    issuer,
		},
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Provider:      id.Provider,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer and expiry and returns the identity.
//
// WithValidMethods pins the algorithm to HS256 so a token claiming
// "alg":"none" or an RSA algorithm is refused before the key is used.
func (s *TokenService) Verify(_ context.Context, tokenStr string) (*model.Identity, error) {
	if tokenStr == "" {
		return nil, missing()
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, invalid(err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, invalid(errors.New("token has no subject"))
	}

	return &model.Identity{
		UID:           c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Provider:      c.Provider,
	}, nil
}
