package gcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/streamhive/upload-service/pkg/config"
	"github.com/streamhive/upload-service/pkg/logger"
	"google.golang.org/api/option"
)

const pingTimeout = 5 * time.Second

// StorageError wraps a failed interaction with the blob store.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return fmt.Sprintf("gcs %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("gcs %s %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UploadResult describes a completed blob write.
type UploadResult struct {
	URL          string
	ETag         string
	LastModified time.Time
}

type Client struct {
	client        *storage.Client
	defaultBucket string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a GCS client from the configured credentials and verifies
// the raw bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.RawBucket == "" {
		return nil, errors.New("gcs raw bucket is required")
	}

	var opts []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	inner, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	client := &Client{
		client:        inner,
		defaultBucket: cfg.RawBucket,
	}

	if err := client.Ping(ctx); err != nil {
		_ = inner.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

// Upload writes data to bucket/key with the given content type and sanitized
// metadata, returning the public object URL and write attributes.
func (c *Client) Upload(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) (*UploadResult, error) {
	if c == nil || c.client == nil {
		return nil, &StorageError{Op: "upload", Bucket: bucket, Key: key, Err: errors.New("client not initialized")}
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w := c.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = SanitizeMetadata(metadata)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, &StorageError{Op: "upload", Bucket: bucket, Key: key, Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &StorageError{Op: "upload", Bucket: bucket, Key: key, Err: err}
	}

	attrs := w.Attrs()
	result := &UploadResult{
		URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key),
	}
	if attrs != nil {
		result.ETag = attrs.Etag
		result.LastModified = attrs.Updated
	}
	return result, nil
}

// Ping verifies the default bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.client.Bucket(c.defaultBucket).Attrs(ctx); err != nil {
		return &StorageError{Op: "ping", Bucket: c.defaultBucket, Err: err}
	}
	return nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
