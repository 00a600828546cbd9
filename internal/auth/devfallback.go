package auth

import (
	"context"
	"log/slog"

	"github.com/sakif/resource-showcase/internal/model"
)

// DevIdentity is the identity DevFallback substitutes.
var DevIdentity = model.Identity{
	UID:           "dev-user",
	Email:         "dev@example.com",
	EmailVerified: true,
	Provider:      "dev-bypass",
}

// DevFallback lets local development proceed without an identity service.
//
// It only steps in when the wrapped verifier answers ServiceUnavailable. A
// missing header or a bad token is still rejected. The config layer refuses
// to start a production process with the bypass enabled.
type DevFallback struct {
	inner Verifier
	log   *slog.Logger
}

var _ Verifier = (*DevFallback)(nil)

func NewDevFallback(inner Verifier, log *slog.Logger) *DevFallback {
	return &DevFallback{inner: inner, log: log}
}

func (d *DevFallback) Verify(ctx context.Context, token string) (*model.Identity, error) {
	id, err := d.inner.Verify(ctx, token)
	if err == nil || ReasonOf(err) != ServiceUnavailable {
		return id, err
	}

	d.log.Warn("identity service unavailable, using development identity",
		slog.String("uid", DevIdentity.UID),
		slog.String("cause", err.Error()),
	)
	dev := DevIdentity
	return &dev, nil
}
