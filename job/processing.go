package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mediaworker/failures"
	"mediaworker/logger"
	"mediaworker/metrics"
	"mediaworker/models"
)

// claim marks id as running and returns its record. ok is false when the job
// is no longer pending, e.g. cancelled while queued.
func (d *Dispatcher) claim(id string, cancel context.CancelFunc) (models.JobRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.store.Load(id)
	if err != nil {
		logger.Errorf("Failed to load job %s: %v", id, err)
		return models.JobRecord{}, false
	}
	if rec.Status != models.JobStatusPending {
		return models.JobRecord{}, false
	}
	d.active[id] = cancel
	return rec, true
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, id)
	delete(d.cancelled, id)
}

func (d *Dispatcher) wasCancelled(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled[id]
}

// process runs one job, retrying retryable failures, until it reaches a
// terminal state or the dispatcher shuts down.
func (d *Dispatcher) process(parent context.Context, id string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rec, ok := d.claim(id, cancel)
	if !ok {
		return
	}
	defer d.release(id)

	log := logger.With("job", id, "operation", rec.Operation)
	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	for {
		rec.Attempts++
		rec.Status = models.JobStatusProcessing
		rec.UpdatedAt = time.Now().UTC()
		d.save(rec, log)
		log.Infof("Starting attempt %d/%d", rec.Attempts, d.maxAttempts)

		var err error
		rec, err = d.attempt(ctx, rec, log)
		if err == nil {
			metrics.JobsTotal.WithLabelValues(string(rec.Operation), metrics.OutcomeCompleted).Inc()
			d.sendCallback(rec, log)
			return
		}

		if d.wasCancelled(id) {
			d.finishCancelled(rec, log)
			return
		}
		if parent.Err() != nil {
			// shutting down, leave the job for Recover
			rec.Status = models.JobStatusPending
			rec.UpdatedAt = time.Now().UTC()
			d.save(rec, log)
			log.Warnf("Interrupted by shutdown, job left pending")
			return
		}

		if models.IsRetryable(err) && rec.Attempts < d.maxAttempts {
			metrics.JobsTotal.WithLabelValues(string(rec.Operation), metrics.OutcomeRetried).Inc()
			rec.Status = models.JobStatusPending
			rec.Error = err.Error()
			rec.UpdatedAt = time.Now().UTC()
			d.save(rec, log)

			wait := d.backoff * time.Duration(rec.Attempts)
			log.Warnf("Attempt %d failed, retrying in %s: %v", rec.Attempts, wait, err)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				if d.wasCancelled(id) {
					d.finishCancelled(rec, log)
				}
				return
			}
		}

		d.storeFailure(rec, err, log)
		return
	}
}

// attempt executes the job once under the per attempt timeout.
func (d *Dispatcher) attempt(ctx context.Context, rec models.JobRecord, log *logger.Entry) (models.JobRecord, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	a := newAssignment(d, rec, log)
	stop := a.flushProgress(d.flushInterval)
	err := d.execute(ctx, a, d.worker)
	stop()

	if err != nil {
		log.Errorf("Attempt %d failed: %v", rec.Attempts, err)
		return rec, err
	}
	done, completed := a.snapshot()
	if !completed {
		return rec, fmt.Errorf("job finished without completing the assignment")
	}
	return done, nil
}

func (d *Dispatcher) save(rec models.JobRecord, log *logger.Entry) {
	if err := d.store.Save(rec); err != nil {
		log.Errorf("Failed to persist job record: %v", err)
	}
	d.track(rec)
}

func (d *Dispatcher) finishCancelled(rec models.JobRecord, log *logger.Entry) {
	rec.Status = models.JobStatusCancelled
	rec.UpdatedAt = time.Now().UTC()
	d.save(rec, log)
	metrics.JobsTotal.WithLabelValues(string(rec.Operation), metrics.OutcomeCancelled).Inc()
	log.Infof("Job cancelled")
}

// storeFailure marks the job failed and records it in the failure store
func (d *Dispatcher) storeFailure(rec models.JobRecord, err error, log *logger.Entry) {
	if storeErr := failures.StoreFailure(rec, err); storeErr != nil {
		log.Errorf("Failed to store failure record: %v", storeErr)
	}

	rec.Status = models.JobStatusFailed
	rec.Error = err.Error()
	rec.UpdatedAt = time.Now().UTC()
	d.save(rec, log)
	metrics.JobsTotal.WithLabelValues(string(rec.Operation), metrics.OutcomeFailed).Inc()
	log.Errorf("Job failed after %d attempt(s): %v", rec.Attempts, err)
	d.sendCallback(rec, log)
}

// sendCallback notifies the job's webhook, if any. Errors are logged only.
func (d *Dispatcher) sendCallback(rec models.JobRecord, log *logger.Entry) {
	if rec.Callback == nil || rec.Callback.URL == "" {
		return
	}

	payload := map[string]interface{}{
		"id":        rec.ID,
		"operation": rec.Operation,
		"status":    rec.Status,
		"output":    rec.Output,
		"error":     rec.Error,
		"attempts":  rec.Attempts,
		"timestamp": time.Now().Unix(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Failed to marshal callback payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, rec.Callback.URL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		log.Errorf("Failed to create callback request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mediaworker/1.0")
	for key, value := range rec.Callback.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		log.Errorf("Callback request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("Callback returned non-2xx status: %d", resp.StatusCode)
		return
	}
	log.Infof("Successfully sent callback to %s", rec.Callback.URL)
}
