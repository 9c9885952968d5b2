package job

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mediaworker/logger"
	"mediaworker/models"
	"mediaworker/operations"
	"mediaworker/pipeline"
	taskqueue "mediaworker/taskQueue"
	"mediaworker/tracker"
	"mediaworker/utils"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

// Options configure a Dispatcher.
type Options struct {
	Store       *taskqueue.JobStore
	Worker      *operations.WorkerContext
	Tracker     tracker.Tracker
	Timeout     time.Duration // per attempt, 0 disables
	MaxAttempts int
	Backoff     time.Duration // multiplied by the attempt number
	Concurrency int
}

// Dispatcher owns the pending list and runs jobs through the operations.
type Dispatcher struct {
	store       *taskqueue.JobStore
	worker      *operations.WorkerContext
	tracker     tracker.Tracker
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	concurrency int

	execute       func(context.Context, operations.Assignment, *operations.WorkerContext) error
	flushInterval time.Duration
	client        *http.Client

	mu        sync.Mutex
	pending   []string                      // job ids, oldest first
	active    map[string]context.CancelFunc // id -> cancel of the running attempt loop
	cancelled map[string]bool
	wake      chan struct{}
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Tracker == nil {
		opts.Tracker = tracker.Noop{}
	}
	return &Dispatcher{
		store:         opts.Store,
		worker:        opts.Worker,
		tracker:       opts.Tracker,
		timeout:       opts.Timeout,
		maxAttempts:   opts.MaxAttempts,
		backoff:       opts.Backoff,
		concurrency:   opts.Concurrency,
		execute:       operations.Execute,
		flushInterval: time.Second,
		client:        &http.Client{Timeout: 30 * time.Second},
		active:        make(map[string]context.CancelFunc),
		cancelled:     make(map[string]bool),
		wake:          make(chan struct{}, 1),
	}
}

// Submit validates req, persists a pending record and queues it.
func (d *Dispatcher) Submit(req models.JobRequest) (models.JobRecord, error) {
	input, err := req.Input.InputFile()
	if err != nil {
		return models.JobRecord{}, err
	}
	if err := input.Validate(); err != nil {
		return models.JobRecord{}, err
	}
	if _, err := pipeline.Build(req.Operation, req.Input, pipeline.Options{AllowStaging: d.worker.AllowStaging}); err != nil {
		return models.JobRecord{}, err
	}

	id, err := utils.NewJobID()
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("failed to generate job id: %w", err)
	}
	now := time.Now().UTC()
	rec := models.JobRecord{
		ID:        id,
		Operation: req.Operation,
		Input:     req.Input,
		Status:    models.JobStatusPending,
		Callback:  req.Callback,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.store.Save(rec); err != nil {
		return models.JobRecord{}, fmt.Errorf("failed to persist job: %w", err)
	}
	d.track(rec)
	d.enqueue(id)
	logger.Infof("Queued %s job %s", rec.Operation, id)
	return rec, nil
}

// Recover queues records left pending or processing by a previous run.
func (d *Dispatcher) Recover() (int, error) {
	records, err := d.store.List(models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		if rec.Status == models.JobStatusProcessing {
			rec.Status = models.JobStatusPending
			rec.UpdatedAt = time.Now().UTC()
			if err := d.store.Save(rec); err != nil {
				return 0, err
			}
		}
		d.enqueue(rec.ID)
	}
	return len(records), nil
}

func (d *Dispatcher) enqueue(id string) {
	d.mu.Lock()
	d.pending = append(d.pending, id)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest pending job id.
func (d *Dispatcher) next() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return "", false
	}
	id := d.pending[0]
	d.pending = d.pending[1:]
	return id, true
}

// PendingCount returns the number of queued jobs.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Status returns the persisted record of a job.
func (d *Dispatcher) Status(id string) (models.JobRecord, error) {
	rec, err := d.store.Load(id)
	if errors.Is(err, taskqueue.ErrNotFound) {
		return models.JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return rec, err
}

// Cancel stops a queued or running job.
func (d *Dispatcher) Cancel(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.store.Load(id)
	if errors.Is(err, taskqueue.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return err
	}

	switch rec.Status {
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, rec.Status)
	}

	if cancel, ok := d.active[id]; ok {
		// the attempt loop records the cancelled state
		d.cancelled[id] = true
		cancel()
		return nil
	}

	for i, p := range d.pending {
		if p == id {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			break
		}
	}
	rec.Status = models.JobStatusCancelled
	rec.UpdatedAt = time.Now().UTC()
	if err := d.store.Save(rec); err != nil {
		return err
	}
	d.track(rec)
	return nil
}

// Run processes pending jobs until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.loop(ctx)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		id, ok := d.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
			case <-time.After(time.Second):
			}
			continue
		}
		d.process(ctx, id)
	}
}

// track pushes rec to the tracker; failures are logged only.
func (d *Dispatcher) track(rec models.JobRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.tracker.Update(ctx, rec); err != nil {
		logger.Warnf("Tracker update for job %s failed: %v", rec.ID, err)
	}
}
