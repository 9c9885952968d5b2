package writerbackends

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Backend names accepted by Open.
const (
	BackendS3          = "s3"
	BackendGCS         = "gcs"
	BackendSFTP        = "sftp"
	BackendDirectServe = "directServe"
)

// ObjectStore is the storage client shared by every job of a worker.
type ObjectStore interface {
	// Upload streams body into bucket/key. It returns only after the object is
	// durably stored or the upload failed.
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	// PresignGet returns a URL that allows reading bucket/key for ttl.
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	Close() error
}

// Open builds the ObjectStore for backendType from its access info.
// we switch based on the backend type: directServe, s3, gcs, sftp
func Open(ctx context.Context, backendType string, accessInfo map[string]string) (ObjectStore, error) {
	switch backendType {
	case BackendDirectServe:
		store, err := NewDirectServeStore(accessInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to open direct serve store: %w", err)
		}
		return store, nil
	case BackendS3:
		store, err := NewS3Store(ctx, accessInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to open S3 store: %w", err)
		}
		return store, nil
	case BackendGCS:
		store, err := NewGCSStore(ctx, accessInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to open GCS store: %w", err)
		}
		return store, nil
	case BackendSFTP:
		store, err := NewSFTPStore(accessInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to open SFTP store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", backendType)
	}
}
