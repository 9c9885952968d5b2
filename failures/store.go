package failures

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediaworker/encoder"
	"mediaworker/models"

	pebble "github.com/cockroachdb/pebble"
)

// FailureRecord represents a job that failed for good
type FailureRecord struct {
	ID        string           `json:"id"`
	Operation models.Operation `json:"operation"`
	Timestamp time.Time        `json:"timestamp"`
	Kind      string           `json:"kind"`
	Error     string           `json:"error"`
	Stderr    string           `json:"stderr,omitempty"` // engine diagnostics
	Attempts  int              `json:"attempts"`
	JobData   string           `json:"job_data"` // JSON string of the job input
}

var db *pebble.DB

// Init initializes the failure store
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open failure store: %w", err)
	}
	return nil
}

// Close closes the failure store
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// Kind names the failure class of err.
func Kind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, models.ErrEngineFailure):
		return "engine_failure"
	case errors.Is(err, models.ErrStorageFailure):
		return "storage_failure"
	default:
		return "internal"
	}
}

// StoreFailure stores a processing failure
func StoreFailure(rec models.JobRecord, err error) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}

	jobJSON, jsonErr := json.Marshal(rec.Input)
	if jsonErr != nil {
		jobJSON = []byte(fmt.Sprintf("failed to marshal job data: %v", jsonErr))
	}

	record := FailureRecord{
		ID:        rec.ID,
		Operation: rec.Operation,
		Timestamp: time.Now(),
		Kind:      Kind(err),
		Error:     err.Error(),
		Attempts:  rec.Attempts,
		JobData:   string(jobJSON),
	}
	var engineErr *encoder.EngineError
	if errors.As(err, &engineErr) {
		record.Stderr = engineErr.Stderr
	}

	data, jsonErr := json.Marshal(record)
	if jsonErr != nil {
		return fmt.Errorf("failed to marshal failure record: %w", jsonErr)
	}
	return db.Set([]byte(rec.ID), data, pebble.Sync)
}

// GetFailure retrieves a failure record by job id
func GetFailure(id string) (*FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	data, closer, err := db.Get([]byte(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil // No failure found
		}
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	defer closer.Close()

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &record, nil
}

// DeleteFailure removes a failure record
func DeleteFailure(id string) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	return db.Delete([]byte(id), pebble.Sync)
}

// ListFailures returns all failure records (for admin purposes)
func ListFailures() ([]FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	var failures []FailureRecord
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		failures = append(failures, record)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return failures, nil
}

// CleanupOldRecords removes failure records older than maxAge
func CleanupOldRecords(maxAge time.Duration) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	records, err := ListFailures()
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.Timestamp.Before(cutoff) {
			if err := db.Delete([]byte(record.ID), pebble.Sync); err != nil {
				return fmt.Errorf("failed to delete old failure record: %w", err)
			}
		}
	}
	return nil
}
