package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chiayulin/pickline-backend/pkg/config"
	"github.com/chiayulin/pickline-backend/pkg/logger"
)

const (
	objectPrefix = "/storage/v1/object"
	publicPrefix = "/storage/v1/object/public"
	pingTimeout  = 5 * time.Second
)

// Client talks to a Supabase-compatible storage API over plain HTTP. Objects
// live in a single bucket; uploads return the public URL the catalog stores on
// the product record.
type Client struct {
	httpClient *http.Client
	baseURL    string
	bucket     string
	serviceKey string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("storage base url is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.ServiceKey == "" {
		return nil, errors.New("storage service key is required")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		bucket:     cfg.Bucket,
		serviceKey: cfg.ServiceKey,
	}

	if logg != nil {
		logg.Info(ctx, "storage client initialized")
	}

	return client, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// PublicURL returns the public address an uploaded object is served from.
func (c *Client) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s%s/%s/%s", c.baseURL, publicPrefix, c.bucket, strings.TrimLeft(objectPath, "/"))
}

// ObjectPath extracts the bucket-relative path from a public URL previously
// produced by PublicURL. The second return is false for foreign URLs, which
// must not be deleted from this bucket.
func (c *Client) ObjectPath(publicURL string) (string, bool) {
	marker := publicPrefix + "/" + c.bucket + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", false
	}
	path := publicURL[idx+len(marker):]
	if path == "" {
		return "", false
	}
	return path, true
}

// Upload stores the object and returns its public URL. Existing objects at
// the same path are overwritten.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if objectPath == "" {
		return "", errors.New("object path is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	endpoint := c.objectEndpoint(objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("upload", resp)
	}

	return c.PublicURL(objectPath), nil
}

// Remove deletes the object at the bucket-relative path.
func (c *Client) Remove(ctx context.Context, objectPath string) error {
	if objectPath == "" {
		return errors.New("object path is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectEndpoint(objectPath), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("remove", resp)
	}
	return nil
}

// Ping verifies the bucket is reachable with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("storage client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/bucket/%s", c.baseURL, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("bucket check", resp)
	}
	return nil
}

func (c *Client) objectEndpoint(objectPath string) string {
	parts := strings.Split(strings.TrimLeft(objectPath, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return fmt.Sprintf("%s%s/%s/%s", c.baseURL, objectPrefix, c.bucket, strings.Join(parts, "/"))
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("storage %s failed: %s: %s", op, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("storage %s failed: %s", op, resp.Status)
}
