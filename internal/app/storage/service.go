/*
Package storage stores user avatars in an S3-compatible bucket.

Objects are written either by the client through a presigned PUT URL or by the server from
a multipart upload, and are served from PublicURL.
*/
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by GetObjectMetadata for a missing key.
var ErrObjectNotFound = errors.New("storage: object not found")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string

	// PublicURL is the base URL objects are served from, without a trailing slash.
	PublicURL string
}

// ObjectMetadata describes a stored object.
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// Upload writes body under key.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error

	// GetObjectMetadata retrieves the object's metadata.
	GetObjectMetadata(ctx context.Context, key string) (ObjectMetadata, error)

	// PublicURL returns the URL key is served from.
	PublicURL(key string) string

	// KeyFromURL reverses PublicURL. It reports false for URLs outside the bucket.
	KeyFromURL(url string) (string, bool)
}

// NewStorageService is the factory function for StorageService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.S3Region == "" {
		cfg.S3Region = "auto"
	}

	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}

func publicURL(base, key string) string {
	return base + "/" + key
}

func keyFromURL(base, url string) (string, bool) {
	prefix := base + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}
