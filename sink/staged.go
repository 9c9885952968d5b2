package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mediaworker/encoder"
	"mediaworker/metrics"

	"github.com/google/uuid"
)

// deliverStaged lets the engine finish into a local file, then uploads it.
// The staged file is removed on every path; removal errors are only logged.
func (s *Sink) deliverStaged(ctx context.Context, d Delivery) (encoder.Result, error) {
	path, err := s.createStagedFile(d.Spec.Extension)
	if err != nil {
		return encoder.Result{}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			metrics.CleanupFailures.Inc()
			d.Logger.Warnf("Failed to remove staged file %s: %v", path, err)
		}
	}()

	res, err := s.engine.Run(ctx, s.request(d, encoder.Destination{Path: path}))
	if err != nil {
		d.Logger.Errorf("Engine failed writing staged file %s: %v", path, err)
		return res, err
	}

	f, err := os.Open(path)
	if err != nil {
		return res, storageError(fmt.Errorf("open staged file: %w", err))
	}
	defer f.Close()

	body := &countingReader{r: f}
	if err := s.store.Upload(ctx, d.Target.Bucket, d.Target.Key, body, ContentType(d.Target.Key)); err != nil {
		err = storageError(err)
		d.Logger.Errorf("Upload of staged file %s failed: %v", path, err)
		return res, err
	}

	metrics.BytesDelivered.WithLabelValues("staged").Add(float64(body.n))
	d.Logger.Infof("Uploaded %d staged bytes to %s", body.n, d.Target)
	return res, nil
}

// createStagedFile reserves a unique file in the staging directory.
func (s *Sink) createStagedFile(ext string) (string, error) {
	dir := s.stagingDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", storageError(fmt.Errorf("create staging dir: %w", err))
	}
	path := filepath.Join(dir, uuid.NewString()+"."+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", storageError(fmt.Errorf("create staged file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", storageError(fmt.Errorf("create staged file: %w", err))
	}
	return path, nil
}
