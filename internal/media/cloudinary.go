package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
)

// DefaultCloudinaryPrefix is the upload API host.
const DefaultCloudinaryPrefix = "https://api.cloudinary.com"

// CloudinaryConfig holds account credentials. With an APISecret uploads are
// signed; without one the UploadPreset must allow unsigned uploads. Deletion
// always needs the secret.
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	Folder       string

	// UploadPrefix overrides DefaultCloudinaryPrefix.
	UploadPrefix string
}

// Cloudinary talks to the Cloudinary upload API through the official SDK.
type Cloudinary struct {
	cfg CloudinaryConfig
	cld *cloudinary.Cloudinary // nil without an api secret
	now func() time.Time
}

var _ Provider = (*Cloudinary)(nil)

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	if cfg.UploadPrefix == "" {
		cfg.UploadPrefix = DefaultCloudinaryPrefix
	}
	cfg.UploadPrefix = strings.TrimRight(cfg.UploadPrefix, "/")

	c := &Cloudinary{cfg: cfg, now: time.Now}
	if cfg.APISecret == "" {
		return c, nil
	}

	conf, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: building config: %w", err)
	}
	conf.API.UploadPrefix = cfg.UploadPrefix
	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: creating client: %w", err)
	}
	c.cld = cld
	return c, nil
}

func (c *Cloudinary) Name() string { return "cloudinary" }

func resourceType(kind model.MediaType) string {
	if kind == model.MediaVideo {
		return "video"
	}
	return "image"
}

// Delete calls the destroy API. Cloudinary reports "ok" on success and
// "not found" otherwise; only "ok" counts as deleted.
func (c *Cloudinary) Delete(ctx context.Context, publicID string, kind model.MediaType) (bool, error) {
	if c.cld == nil {
		return false, apperror.Unavailable("media service", fmt.Errorf("cloudinary: api secret not configured"))
	}

	params := uploader.DestroyParams{PublicID: publicID}
	if kind == model.MediaVideo {
		params.ResourceType = "video"
	} else {
		params.ResourceType = "image"
	}

	res, err := c.cld.Upload.Destroy(ctx, params)
	if err != nil {
		return false, apperror.Unavailable("media service", fmt.Errorf("cloudinary: destroy: %w", err))
	}
	return res.Result == "ok", nil
}

// UploadParams returns a multipart form the browser posts to Cloudinary.
func (c *Cloudinary) UploadParams(_ context.Context, filename, contentType string) (*UploadParams, error) {
	kind, err := MediaTypeFor(contentType)
	if err != nil {
		return nil, err
	}

	out := &UploadParams{
		Provider:  c.Name(),
		Method:    http.MethodPost,
		UploadURL: fmt.Sprintf("%s/v1_1/%s/%s/upload", c.cfg.UploadPrefix, url.PathEscape(c.cfg.CloudName), resourceType(kind)),
		MediaType: kind,
		Fields:    map[string]string{},
	}
	if c.cfg.Folder != "" {
		out.Fields["folder"] = c.cfg.Folder
	}

	switch {
	case c.cfg.APISecret != "":
		ts := c.now()
		out.Fields["timestamp"] = strconv.FormatInt(ts.Unix(), 10)

		signed := url.Values{}
		for k, v := range out.Fields {
			signed.Set(k, v)
		}
		sig, err := api.SignParameters(signed, c.cfg.APISecret)
		if err != nil {
			return nil, fmt.Errorf("cloudinary: signing upload: %w", err)
		}
		out.Fields["signature"] = sig
		out.Fields["api_key"] = c.cfg.APIKey
		// Cloudinary rejects signed requests older than one hour.
		exp := ts.Add(time.Hour)
		out.ExpiresAt = &exp
	case c.cfg.UploadPreset != "":
		out.Fields["upload_preset"] = c.cfg.UploadPreset
	default:
		return nil, apperror.Unavailable("media service",
			fmt.Errorf("cloudinary: neither api secret nor upload preset configured"))
	}
	return out, nil
}
