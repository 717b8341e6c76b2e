// Package minio stores immutable snapshots of finished result documents in
// S3-compatible object storage and hands out presigned download links.
package minio

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/compound-analysis/internal/config"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

const connectTimeout = 10 * time.Second

// ObjectAPI is the subset of *minio.Client used here.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

var ErrClientClosed = errors.New(errors.ErrCodeStorageError, "object storage client is closed")

// Client wraps an ObjectAPI bound to the archive bucket.
type Client struct {
	api    ObjectAPI
	cfg    config.MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the endpoint in cfg, creates the bucket when missing
// and installs the retention rule.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client").
			WithDetail("endpoint=" + cfg.Endpoint)
	}

	c := NewClientWithAPI(api, cfg, log)
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	if err := c.ApplyRetention(ctx); err != nil {
		c.logger.Warn("failed to set bucket lifecycle", logging.String("bucket", cfg.Bucket), logging.Err(err))
	}

	c.logger.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing ObjectAPI. Used by tests.
func NewClientWithAPI(api ObjectAPI, cfg config.MinIOConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.Bucket == "" {
		cfg.Bucket = config.DefaultMinIOBucket
	}
	if cfg.Region == "" {
		cfg.Region = config.DefaultMinIORegion
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = config.DefaultMinIOPresignExpiry
	}
	return &Client{api: api, cfg: cfg, logger: log.Named("minio")}
}

// Bucket returns the archive bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// EnsureBucket creates the archive bucket when it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence").
			WithDetail("bucket=" + c.cfg.Bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").
			WithDetail("bucket=" + c.cfg.Bucket)
	}
	c.logger.Info("created bucket", logging.String("bucket", c.cfg.Bucket))
	return nil
}

// ApplyRetention expires archived objects after cfg.RetentionDays. It is a
// no-op when retention is disabled.
func (c *Client) ApplyRetention(ctx context.Context) error {
	if c.cfg.RetentionDays <= 0 {
		return nil
	}
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{{
		ID:         "archive-expiry",
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: result.ArchivePrefix},
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(c.cfg.RetentionDays)},
	}}
	return c.api.SetBucketLifecycle(ctx, c.cfg.Bucket, lc)
}

// Name identifies the dependency in health reports.
func (c *Client) Name() string { return "minio" }

// HealthCheck verifies the archive bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "object storage unreachable")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "archive bucket missing").
			WithDetail("bucket=" + c.cfg.Bucket)
	}
	return nil
}

// Close marks the client closed. The underlying HTTP client has no resources
// to release.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

//Personal.AI order the ending
