package job

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"mediaworker/logger"
	"mediaworker/models"
	"mediaworker/success"
)

// assignment is one attempt of a job as seen by the operations.
type assignment struct {
	d   *Dispatcher
	log *logger.Entry

	progress atomic.Uint64 // math.Float64bits of the last reported percent

	mu        sync.Mutex
	rec       models.JobRecord
	output    *models.Locator
	completed bool
}

func newAssignment(d *Dispatcher, rec models.JobRecord, log *logger.Entry) *assignment {
	a := &assignment{d: d, rec: rec, log: log}
	a.progress.Store(math.Float64bits(rec.Progress))
	return a
}

func (a *assignment) JobID() string               { return a.rec.ID }
func (a *assignment) Operation() models.Operation { return a.rec.Operation }
func (a *assignment) Input() models.ParameterBag  { return a.rec.Input }
func (a *assignment) Logger() *logger.Entry       { return a.log }

func (a *assignment) SetOutputFile(loc models.Locator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output = &loc
}

func (a *assignment) ReportProgress(percent float64) {
	a.progress.Store(math.Float64bits(percent))
}

// Complete persists the output and the completed status.
func (a *assignment) Complete(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed {
		return errors.New("assignment already completed")
	}
	if a.output == nil {
		return errors.New("assignment completed without an output file")
	}

	rec := a.rec
	rec.Output = map[string]any{models.OutputFileKey: *a.output}
	rec.Status = models.JobStatusCompleted
	rec.Progress = 100
	rec.Error = ""
	rec.UpdatedAt = time.Now().UTC()
	if err := a.d.store.Save(rec); err != nil {
		return err
	}
	a.rec = rec
	a.completed = true
	a.d.track(rec)

	if err := success.StoreSuccess(rec, *a.output); err != nil {
		a.log.Errorf("Failed to store success record: %v", err)
	}
	a.log.Infof("Completed with output %s", a.output)
	return nil
}

// flushProgress periodically persists reported progress until the returned
// stop function is called.
func (a *assignment) flushProgress(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				a.persistProgress()
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (a *assignment) persistProgress() {
	p := math.Float64frombits(a.progress.Load())

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completed || p == a.rec.Progress {
		return
	}
	a.rec.Progress = p
	a.rec.UpdatedAt = time.Now().UTC()
	a.d.save(a.rec, a.log)
}

// snapshot returns the record and whether Complete succeeded.
func (a *assignment) snapshot() (models.JobRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec, a.completed
}
