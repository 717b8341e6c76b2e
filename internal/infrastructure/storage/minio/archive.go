package minio

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// maxPresignExpiry is the S3 upper bound for presigned URLs.
const maxPresignExpiry = 7 * 24 * time.Hour

var ErrObjectNotFound = errors.New(errors.ErrCodeResultNotFound, "archived result not found")

// Archive implements result.Archive on top of Client.
type Archive struct {
	client *Client
	logger logging.Logger
}

// NewArchive returns the archive bound to client's bucket.
func NewArchive(client *Client, log logging.Logger) *Archive {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Archive{client: client, logger: log.Named("archive")}
}

var _ result.Archive = (*Archive)(nil)

// Put uploads body under key. size may be -1 when unknown.
func (a *Archive) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if a.client.isClosed() {
		return ErrClientClosed
	}
	if err := validateKey(key); err != nil {
		return err
	}
	info, err := a.client.api.PutObject(ctx, a.client.cfg.Bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeResultArchiveFailed, "failed to upload archive").
			WithDetail("key=" + key)
	}
	a.logger.Debug("archive uploaded",
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag))
	return nil
}

// Exists reports whether key has been archived.
func (a *Archive) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := a.client.api.StatObject(ctx, a.client.cfg.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat archive").
		WithDetail("key=" + key)
}

// PresignedURL returns a time-limited GET URL for key. A non-positive expiry
// uses the configured default. Missing objects yield ErrObjectNotFound.
func (a *Archive) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if a.client.isClosed() {
		return "", ErrClientClosed
	}
	exists, err := a.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrObjectNotFound.WithDetail("key=" + key)
	}

	if expiry <= 0 {
		expiry = a.client.cfg.PresignExpiry
	}
	if expiry > maxPresignExpiry {
		expiry = maxPresignExpiry
	}
	u, err := a.client.api.PresignedGetObject(ctx, a.client.cfg.Bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign archive url").
			WithDetail("key=" + key)
	}
	return u.String(), nil
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return errors.InvalidParam("invalid object key").WithDetail("key=" + key)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

//Personal.AI order the ending
