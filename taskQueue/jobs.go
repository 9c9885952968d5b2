package taskqueue

import (
	"encoding/json"
	"fmt"
	"sort"

	"mediaworker/models"
)

const jobKeyPrefix = "job/"

// JobStore persists job records in a DBQueue.
type JobStore struct {
	q *DBQueue
}

// OpenJobStore opens the job record database at dataFile.
func OpenJobStore(dataFile string) (*JobStore, error) {
	q, err := OpenQueue(dataFile)
	if err != nil {
		return nil, err
	}
	return &JobStore{q: q}, nil
}

// Save writes rec, replacing any previous version.
func (s *JobStore) Save(rec models.JobRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("job record has no id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal job record: %w", err)
	}
	return s.q.Add(jobKeyPrefix+rec.ID, data)
}

// Load returns the record with the given id, or ErrNotFound.
func (s *JobStore) Load(id string) (models.JobRecord, error) {
	data, err := s.q.Get(jobKeyPrefix + id)
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("job %s: %w", id, err)
	}
	var rec models.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.JobRecord{}, fmt.Errorf("failed to unmarshal job record %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes the record with the given id.
func (s *JobStore) Delete(id string) error {
	return s.q.Delete(jobKeyPrefix + id)
}

// List returns the records whose status is one of statuses (all when empty),
// oldest first.
func (s *JobStore) List(statuses ...models.JobStatus) ([]models.JobRecord, error) {
	var records []models.JobRecord
	err := s.q.Scan(jobKeyPrefix, func(key string, value []byte) error {
		var rec models.JobRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // skip invalid records
		}
		if len(statuses) > 0 && !hasStatus(statuses, rec.Status) {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// Close closes the underlying queue.
func (s *JobStore) Close() error {
	return s.q.Close()
}

func hasStatus(statuses []models.JobStatus, status models.JobStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
