package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/sakif/resource-showcase/internal/model"
)

// IDTokenClient is the part of the Firebase Auth client this package uses.
// *fbauth.Client satisfies it.
type IDTokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// NewFirebaseAuthClient returns an Auth client for projectID that is only
// used to verify ID tokens. Verification needs the public signing
// certificates, not service account credentials, so none are loaded unless
// opts supply them.
func NewFirebaseAuthClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*fbauth.Client, error) {
	if projectID == "" {
		return nil, ErrNotConfigured
	}
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: creating app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: creating auth client: %w", err)
	}
	return client, nil
}

// SecureTokenVerifier verifies RS256 ID tokens issued by the hosted identity
// service. The Firebase Admin SDK checks the signature against Google's
// rotating certificates along with issuer, audience, subject and expiry;
// auth_time is checked here.
//
// A failed certificate fetch is reported as ServiceUnavailable, not as an
// invalid token.
type SecureTokenVerifier struct {
	client IDTokenClient
	now    func() time.Time
}

var _ Verifier = (*SecureTokenVerifier)(nil)

// NewSecureTokenVerifier wraps client. A nil client yields a verifier that
// reports ServiceUnavailable for every token.
func NewSecureTokenVerifier(client IDTokenClient) *SecureTokenVerifier {
	return &SecureTokenVerifier{client: client, now: time.Now}
}

func (v *SecureTokenVerifier) Verify(ctx context.Context, tokenStr string) (*model.Identity, error) {
	if tokenStr == "" {
		return nil, missing()
	}
	if v.client == nil {
		return nil, unavailable(ErrNotConfigured)
	}

	tok, err := v.client.VerifyIDToken(ctx, tokenStr)
	if err != nil {
		return nil, classifyFirebaseError(err)
	}
	if tok.AuthTime == 0 || time.Unix(tok.AuthTime, 0).After(v.now()) {
		return nil, invalid(errors.New("auth_time missing or in the future"))
	}

	email, _ := tok.Claims["email"].(string)
	verified, _ := tok.Claims["email_verified"].(bool)
	uid := tok.UID
	if uid == "" {
		uid = tok.Subject
	}
	return &model.Identity{
		UID:           uid,
		Email:         email,
		EmailVerified: verified,
		Provider:      "securetoken",
	}, nil
}

// classifyFirebaseError separates outages (certificates unreachable, the
// request context ending) from tokens that are simply not valid.
func classifyFirebaseError(err error) *Rejection {
	switch {
	case fbauth.IsCertificateFetchFailed(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return unavailable(err)
	default:
		return invalid(err)
	}
}
