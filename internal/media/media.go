// Package media delegates media storage to an external CDN.
//
// The API never carries media bytes. The browser asks for upload parameters,
// uploads straight to the CDN, and stores the resulting URL on the resource.
// Deletion goes through the server because it needs the CDN credentials.
package media

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/rs/xid"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
)

// Provider is a CDN that can sign uploads and delete assets.
type Provider interface {
	// Name identifies the provider in responses and logs.
	Name() string

	// Delete removes the asset. deleted is true only when the CDN confirms
	// the removal; a CDN that answers but refuses yields (false, nil).
	Delete(ctx context.Context, publicID string, kind model.MediaType) (deleted bool, err error)

	// UploadParams returns what the browser needs to upload one file.
	UploadParams(ctx context.Context, filename, contentType string) (*UploadParams, error)
}

// UploadParams describes a direct browser upload.
type UploadParams struct {
	Provider  string            `json:"provider"`
	Method    string            `json:"method"` // POST (multipart form) or PUT (raw body)
	UploadURL string            `json:"uploadUrl"`
	Fields    map[string]string `json:"fields,omitempty"`
	PublicID  string            `json:"publicId,omitempty"`
	PublicURL string            `json:"publicUrl,omitempty"` // known up front for PUT uploads
	MediaType model.MediaType   `json:"mediaType"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

// ErrNotConfigured is the cause reported by Disabled.
var ErrNotConfigured = errors.New("media provider not configured")

// MediaTypeFor maps a MIME type to the media type stored on a resource.
func MediaTypeFor(contentType string) (model.MediaType, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return model.MediaImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return model.MediaVideo, nil
	default:
		return "", apperror.ValidationFailed("contentType", "Only image and video uploads are supported")
	}
}

// objectName builds a unique, URL-safe object name under folder.
func objectName(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ' || r == '.':
			b.WriteByte('-')
		}
		if b.Len() >= 40 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "upload"
	}

	name := xid.New().String() + "-" + slug + ext
	if folder = strings.Trim(folder, "/"); folder != "" {
		return folder + "/" + name
	}
	return name
}

// Disabled is the provider used when no CDN is configured.
type Disabled struct{}

var _ Provider = Disabled{}

func (Disabled) Name() string { return "none" }

func (Disabled) Delete(context.Context, string, model.MediaType) (bool, error) {
	return false, apperror.Unavailable("media service", ErrNotConfigured)
}

func (Disabled) UploadParams(context.Context, string, string) (*UploadParams, error) {
	return nil, apperror.Unavailable("media service", ErrNotConfigured)
}
