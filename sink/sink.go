// Package sink relays engine output into the object store.
package sink

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"mediaworker/encoder"
	"mediaworker/logger"
	"mediaworker/metrics"
	"mediaworker/models"
	"mediaworker/pipeline"
	writerbackends "mediaworker/writerBackends"
)

// Delivery is one engine invocation whose output must end up at Target.
type Delivery struct {
	Spec       pipeline.Spec
	Input      models.Locator
	Target     models.Locator
	OnProgress func(encoder.Progress)
	Logger     *logger.Entry
}

// Sink owns the engine and the storage client shared by all deliveries.
type Sink struct {
	store      writerbackends.ObjectStore
	engine     encoder.Engine
	stagingDir string
}

func New(store writerbackends.ObjectStore, engine encoder.Engine, stagingDir string) *Sink {
	return &Sink{store: store, engine: engine, stagingDir: stagingDir}
}

// Deliver runs the engine and stores its output with the strategy selected
// by the pipeline spec. It returns once the object is stored or the delivery failed;
// on failure the error is the first cause (engine or storage).
func (s *Sink) Deliver(ctx context.Context, d Delivery) (encoder.Result, error) {
	if d.Target.Bucket == "" || d.Target.Key == "" {
		return encoder.Result{}, fmt.Errorf("%w: output target has no bucket or key", models.ErrStorageFailure)
	}

	start := time.Now()
	var (
		res encoder.Result
		err error
	)
	switch d.Spec.Sink {
	case pipeline.SinkStaged:
		res, err = s.deliverStaged(ctx, d)
	default:
		res, err = s.deliverDirect(ctx, d)
	}
	metrics.TransformDuration.WithLabelValues(string(d.Spec.Operation), d.Spec.Sink.String()).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Sink) request(d Delivery, dst encoder.Destination) encoder.Request {
	return encoder.Request{
		Spec:       d.Spec,
		Input:      d.Input,
		Output:     dst,
		OnProgress: d.OnProgress,
		Logger:     d.Logger,
	}
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
