// Package operations runs job assignments through the transform pipeline.
package operations

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mediaworker/encoder"
	"mediaworker/logger"
	"mediaworker/models"
	"mediaworker/pipeline"
	"mediaworker/resolver"
	"mediaworker/sink"
	writerbackends "mediaworker/writerBackends"
)

// Assignment is the job being executed, as owned by the dispatcher.
type Assignment interface {
	JobID() string
	Operation() models.Operation
	// Input is read only.
	Input() models.ParameterBag
	SetOutputFile(loc models.Locator)
	// Complete is the terminal success transition. It is called at most once
	// and never after a failure.
	Complete(ctx context.Context) error
	// ReportProgress must not block.
	ReportProgress(percent float64)
	Logger() *logger.Entry
}

// WorkerContext carries the shared clients of a worker.
type WorkerContext struct {
	Store        writerbackends.ObjectStore
	Resolver     *resolver.Resolver
	Engine       encoder.Engine
	StagingDir   string
	AllowStaging bool
}

// Handler executes one operation.
type Handler func(ctx context.Context, a Assignment, w *WorkerContext) error

var (
	registryMu sync.RWMutex
	registry   = map[models.Operation]Handler{}
)

// Register installs the handler for op.
func Register(op models.Operation, h Handler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[op]; dup {
		panic("operations: duplicate handler for " + string(op))
	}
	registry[op] = h
}

// Supported lists the registered operations.
func Supported() []models.Operation {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ops := make([]models.Operation, 0, len(registry))
	for op := range registry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Execute runs the assignment. On success the output locator is set and the
// assignment completed; on failure neither happens and the error is returned.
func Execute(ctx context.Context, a Assignment, w *WorkerContext) error {
	registryMu.RLock()
	h, ok := registry[a.Operation()]
	registryMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unsupported operation %q", models.ErrInvalidParameters, a.Operation())
	}
	return h(ctx, a, w)
}

// transformOptions tune the shared pipeline per operation.
type transformOptions struct {
	// progressStep is the percentage between logged progress samples; 0 disables logging.
	progressStep float64
}

func transform(ctx context.Context, a Assignment, w *WorkerContext, opts transformOptions) error {
	op := a.Operation()
	log := a.Logger()

	input, err := a.Input().InputFile()
	if err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}

	spec, err := pipeline.Build(op, a.Input(), pipeline.Options{AllowStaging: w.AllowStaging})
	if err != nil {
		return err
	}

	target := w.Resolver.Target(input, spec.Extension)
	log = log.With("sink", spec.Sink, "target", target)
	log.Infof("Running %s on %s", op, input)

	var sampler *encoder.ProgressSampler
	if opts.progressStep > 0 {
		sampler = encoder.NewProgressSampler(opts.progressStep)
	}
	onProgress := func(p encoder.Progress) {
		if p.Percent >= 0 {
			a.ReportProgress(p.Percent)
		}
		if sampler != nil && sampler.ShouldLog(p) {
			log.Infof("Progress %.1f%% (%s of %s, speed %s)", p.Percent, p.Processed, p.Duration, p.Speed)
		}
	}

	res, err := sink.New(w.Store, w.Engine, w.StagingDir).Deliver(ctx, sink.Delivery{
		Spec:       spec,
		Input:      input,
		Target:     target,
		OnProgress: onProgress,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	out, err := w.Resolver.Sign(ctx, target)
	if err != nil {
		return err
	}
	a.SetOutputFile(out)
	log.Infof("Finished %s in %s", op, res.Elapsed)
	return a.Complete(ctx)
}
