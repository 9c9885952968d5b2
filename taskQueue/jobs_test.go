package taskqueue

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mediaworker/models"
)

func openTestStore(t *testing.T) *JobStore {
	t.Helper()
	store, err := OpenJobStore(filepath.Join(t.TempDir(), "JobQueue.db"))
	if err != nil {
		t.Fatalf("Failed to open job store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestJobStoreSaveLoad(t *testing.T) {
	store := openTestStore(t)

	rec := models.JobRecord{
		ID:        "abc",
		Operation: models.OperationTranscode,
		Input:     models.ParameterBag{"format": "webm"},
		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load("abc")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Operation != models.OperationTranscode || got.Input["format"] != "webm" {
		t.Errorf("Unexpected record %+v", got)
	}

	if err := store.Delete("abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load("abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestJobStoreListFiltersAndOrders(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().UTC()

	records := []models.JobRecord{
		{ID: "z-first", Status: models.JobStatusPending, CreatedAt: base},
		{ID: "a-second", Status: models.JobStatusProcessing, CreatedAt: base.Add(time.Second)},
		{ID: "m-done", Status: models.JobStatusCompleted, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, rec := range records {
		if err := store.Save(rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	open, err := store.List(models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(open) != 2 || open[0].ID != "z-first" || open[1].ID != "a-second" {
		t.Errorf("Expected pending then processing by creation time, got %+v", open)
	}

	all, _ := store.List()
	if len(all) != 3 {
		t.Errorf("Expected 3 records, got %d", len(all))
	}
}

func TestPrefixUpperBound(t *testing.T) {
	if got := string(prefixUpperBound([]byte("job/"))); got != "job0" {
		t.Errorf("Expected job0, got %q", got)
	}
	if got := prefixUpperBound([]byte{0xff}); got != nil {
		t.Errorf("Expected nil bound, got %v", got)
	}
}
