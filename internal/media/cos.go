package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
)

// COSConfig configures a Tencent Cloud Object Storage bucket.
type COSConfig struct {
	BucketURL string // https://<bucket>-<appid>.cos.<region>.myqcloud.com
	SecretID  string
	SecretKey string
	Folder    string
}

// presignTTL is how long an upload URL stays valid.
const presignTTL = 15 * time.Minute

// COS stores media in a COS bucket. The public id is the object key.
type COS struct {
	client    *cos.Client
	bucketURL string
	folder    string
	secretID  string
	secretKey string
}

var _ Provider = (*COS)(nil)

func NewCOS(cfg COSConfig) (*COS, error) {
	u, err := url.Parse(cfg.BucketURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("cos: invalid bucket url %q", cfg.BucketURL)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: 30 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})
	return &COS{
		client:    client,
		bucketURL: strings.TrimRight(u.String(), "/"),
		folder:    cfg.Folder,
		secretID:  cfg.SecretID,
		secretKey: cfg.SecretKey,
	}, nil
}

func (c *COS) Name() string { return "cos" }

// Delete removes the object. COS answers 204 to deletes of missing keys too,
// so the object is looked up first; only an existing object that is then
// deleted counts as confirmed.
func (c *COS) Delete(ctx context.Context, publicID string, _ model.MediaType) (bool, error) {
	key := strings.TrimLeft(publicID, "/")

	if _, err := c.client.Object.Head(ctx, key, nil); err != nil {
		if cos.IsNotFoundError(err) {
			return false, nil
		}
		return false, apperror.Unavailable("media service", fmt.Errorf("cos: head %s: %w", key, err))
	}

	if _, err := c.client.Object.Delete(ctx, key); err != nil {
		return false, apperror.Unavailable("media service", fmt.Errorf("cos: delete %s: %w", key, err))
	}
	return true, nil
}

// UploadParams presigns a PUT for a fresh object key.
func (c *COS) UploadParams(ctx context.Context, filename, contentType string) (*UploadParams, error) {
	kind, err := MediaTypeFor(contentType)
	if err != nil {
		return nil, err
	}

	key := objectName(c.folder, filename)
	signed, err := c.client.Object.GetPresignedURL(ctx, http.MethodPut, key,
		c.secretID, c.secretKey, presignTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("cos: presigning upload: %w", err)
	}

	exp := time.Now().Add(presignTTL)
	return &UploadParams{
		Provider:  c.Name(),
		Method:    http.MethodPut,
		UploadURL: signed.String(),
		Fields:    map[string]string{"Content-Type": contentType},
		PublicID:  key,
		PublicURL: c.bucketURL + "/" + key,
		MediaType: kind,
		ExpiresAt: &exp,
	}, nil
}
