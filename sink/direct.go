package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"mediaworker/encoder"
	"mediaworker/metrics"
	"mediaworker/models"

	"golang.org/x/sync/errgroup"
)

// deliverDirect connects the engine output to the upload through a pipe. The
// first leg to fail closes both pipe ends with its error so the other leg
// stops; that first error is what the delivery returns.
func (s *Sink) deliverDirect(ctx context.Context, d Delivery) (encoder.Result, error) {
	pr, pw := io.Pipe()
	out := &countingWriter{w: pw}

	var (
		once  sync.Once
		cause error
	)
	fail := func(err error) {
		once.Do(func() {
			cause = err
			pw.CloseWithError(err)
			pr.CloseWithError(err)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	var res encoder.Result

	g.Go(func() error {
		r, err := s.engine.Run(gctx, s.request(d, encoder.Destination{Writer: out}))
		if err != nil {
			fail(err)
			return err
		}
		res = r
		// EOF for the uploader
		pw.Close()
		return nil
	})

	g.Go(func() error {
		err := s.store.Upload(gctx, d.Target.Bucket, d.Target.Key, pr, ContentType(d.Target.Key))
		if err != nil {
			err = storageError(err)
			fail(err)
			return err
		}
		// further engine writes fail instead of blocking
		pr.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		if cause == nil {
			cause = err
		}
		d.Logger.Errorf("Direct delivery to %s failed: %v", d.Target, cause)
		return res, cause
	}

	metrics.BytesDelivered.WithLabelValues("direct").Add(float64(out.n.Load()))
	d.Logger.Infof("Streamed %d bytes to %s", out.n.Load(), d.Target)
	return res, nil
}

// storageError tags err as a storage failure unless it already carries a kind.
func storageError(err error) error {
	if errors.Is(err, models.ErrStorageFailure) || errors.Is(err, models.ErrEngineFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrStorageFailure, err)
}
