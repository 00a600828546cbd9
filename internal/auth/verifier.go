// Package auth verifies the bearer tokens that gate the admin API and issues
// the locally signed tokens used by password and GitHub sign-in.
//
// REQUEST FLOW:
//  1. RequireAuth reads "Authorization: Bearer <token>".
//  2. A Verifier turns the token into a model.Identity or a *Rejection.
//  3. The identity is stored in the request context for handlers.
//
// Nothing is stored server-side: every request is verified from scratch.
//
// VERIFIERS:
//   - SecureTokenVerifier: RS256 ID tokens from the hosted identity service,
//     checked by the Firebase Admin SDK against the published certificates.
//   - TokenService: HS256 tokens this server issues after password or GitHub
//     sign-in.
//   - Chain: picks one of the above from the token's "alg" header.
//   - DevFallback: substitutes a fixed identity while the identity service is
//     unavailable. Only wired when APP_AUTH_DEV_BYPASS=true outside production.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/resource-showcase/internal/model"
)

// Verifier checks a raw bearer token. On failure the error is a *Rejection.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// Reason classifies why a token was not accepted.
type Reason int

const (
	MissingCredential Reason = iota + 1
	InvalidCredential
	ServiceUnavailable
)

func (r Reason) String() string {
	switch r {
	case MissingCredential:
		return "missing_credential"
	case InvalidCredential:
		return "invalid_credential"
	case ServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Rejection is the error every Verifier returns.
type Rejection struct {
	Reason Reason
	Err    error // underlying cause, for logs only
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("auth: %s: %v", r.Reason, r.Err)
	}
	return "auth: " + r.Reason.String()
}

func (r *Rejection) Unwrap() error { return r.Err }

// Message is the client-facing text. It never includes the cause.
func (r *Rejection) Message() string {
	switch r.Reason {
	case MissingCredential:
		return "No valid authorization header"
	case InvalidCredential:
		return "Invalid token"
	default:
		return "Authentication service unavailable"
	}
}

func missing() *Rejection { return &Rejection{Reason: MissingCredential} }

func invalid(err error) *Rejection { return &Rejection{Reason: InvalidCredential, Err: err} }

func unavailable(err error) *Rejection { return &Rejection{Reason: ServiceUnavailable, Err: err} }

// ReasonOf extracts the rejection reason from err. Errors that are not
// rejections count as InvalidCredential.
func ReasonOf(err error) Reason {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return InvalidCredential
}

// ErrNotConfigured is the cause reported when no identity service is set up.
var ErrNotConfigured = errors.New("identity service not configured")
