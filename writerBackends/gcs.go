package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"mediaworker/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes objects with a streaming storage.Writer.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a client from a service account key given in
// accessInfo["credentialsJSON"] (raw or base64). Without it application
// default credentials are used.
func NewGCSStore(ctx context.Context, accessInfo map[string]string) (*GCSStore, error) {
	var opts []option.ClientOption
	if raw := accessInfo["credentialsJSON"]; raw != "" {
		credentialsJSON, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			credentialsJSON = []byte(raw)
		}
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, body); err != nil {
		// cancelling before Close discards the partial object
		cancel()
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	// the object only becomes visible once Close succeeds
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}

func (s *GCSStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := s.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s/%s: %w", bucket, key, err)
	}
	return u, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
