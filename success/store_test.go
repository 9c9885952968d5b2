package success

import (
	"path/filepath"
	"testing"
	"time"

	"mediaworker/models"
)

func initStore(t *testing.T) {
	t.Helper()
	if err := Init(filepath.Join(t.TempDir(), "success.db")); err != nil {
		t.Fatalf("Failed to initialize success store: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestStoreAndGetSuccess(t *testing.T) {
	initStore(t)

	rec := models.JobRecord{
		ID:        "job-ok",
		Operation: models.OperationExtractAudio,
		Input:     models.ParameterBag{"format": "mp3"},
		Attempts:  1,
	}
	out := models.Locator{Bucket: "out", Key: "a/b.mp3", URL: "https://out.example.com/a/b.mp3"}
	if err := StoreSuccess(rec, out); err != nil {
		t.Fatalf("StoreSuccess failed: %v", err)
	}

	got, err := GetSuccess("job-ok")
	if err != nil {
		t.Fatalf("GetSuccess failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a success record")
	}
	if got.OutputFile != out || got.Operation != models.OperationExtractAudio {
		t.Errorf("Unexpected record %+v", got)
	}
	if got.JobData != `{"format":"mp3"}` {
		t.Errorf("Unexpected job data %q", got.JobData)
	}

	missing, err := GetSuccess("nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil record for unknown id, got %+v (%v)", missing, err)
	}
	if err := CheckHealth(); err != nil {
		t.Errorf("CheckHealth failed: %v", err)
	}
}

func TestCleanupOldRecords(t *testing.T) {
	initStore(t)

	if err := StoreSuccess(models.JobRecord{ID: "fresh"}, models.Locator{}); err != nil {
		t.Fatalf("StoreSuccess failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := CleanupOldRecords(10 * time.Millisecond); err != nil {
		t.Fatalf("CleanupOldRecords failed: %v", err)
	}

	records, err := ListSuccessRecords()
	if err != nil {
		t.Fatalf("ListSuccessRecords failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected old records to be removed, got %d", len(records))
	}
}

func TestUninitializedStore(t *testing.T) {
	Close()
	if err := StoreSuccess(models.JobRecord{ID: "x"}, models.Locator{}); err == nil {
		t.Error("Expected error from uninitialized store")
	}
}
