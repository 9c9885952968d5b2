package writerbackends

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediaworker/logger"
	"mediaworker/utils"
)

var ErrInvalidObjectPath = errors.New("invalid object path")

// DirectServeStore writes objects below baseDir; they are served back by our
// own http server under /files/ with a signed, expiring token.
type DirectServeStore struct {
	baseDir       string
	publicBaseURL string
	secret        []byte
}

// NewDirectServeStore reads baseDir, publicBaseURL and secret from accessInfo.
func NewDirectServeStore(accessInfo map[string]string) (*DirectServeStore, error) {
	baseDir := accessInfo["baseDir"]
	if baseDir == "" {
		return nil, fmt.Errorf("missing required accessInfo key: baseDir")
	}
	secret := accessInfo["secret"]
	if len(secret) < 32 {
		return nil, fmt.Errorf("direct serve secret must be at least 32 bytes")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	return &DirectServeStore{
		baseDir:       abs,
		publicBaseURL: strings.TrimRight(accessInfo["publicBaseURL"], "/"),
		secret:        []byte(secret),
	}, nil
}

// Path maps bucket/key to a file below the base directory.
func (s *DirectServeStore) Path(bucket, key string) (string, error) {
	if bucket == "" || key == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidObjectPath, bucket, key)
	}
	full := filepath.Join(s.baseDir, bucket, filepath.FromSlash(key))
	if !strings.HasPrefix(full, filepath.Join(s.baseDir, bucket)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidObjectPath, bucket, key)
	}
	return full, nil
}

func (s *DirectServeStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	fullPath, err := s.Path(bucket, key)
	if err != nil {
		return err
	}
	fullDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(fullDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// write next to the target and rename, readers never see a partial file
	file, err := os.CreateTemp(fullDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", fullDir, err)
	}
	tmpPath := file.Name()

	_, err = io.Copy(file, contextReader{ctx: ctx, r: body})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpPath, fullPath)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Infof("Successfully saved object '%s/%s' to '%s'", bucket, key, fullPath)
	return nil
}

func (s *DirectServeStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if _, err := s.Path(bucket, key); err != nil {
		return "", err
	}
	token, err := utils.SignServeToken(s.secret, bucket, key, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign serve token: %w", err)
	}
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/files/%s/%s?token=%s",
		s.publicBaseURL, url.PathEscape(bucket), strings.Join(segments, "/"), url.QueryEscape(token)), nil
}

// Authorize checks a download token issued by PresignGet.
func (s *DirectServeStore) Authorize(token, bucket, key string) error {
	return utils.VerifyServeToken(s.secret, token, bucket, key)
}

func (s *DirectServeStore) Close() error { return nil }

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
