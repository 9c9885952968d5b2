package tracker

import (
	"context"
	"testing"
	"time"

	"mediaworker/models"
)

func TestNewWithoutAddressIsNoop(t *testing.T) {
	tr, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := tr.(Noop); !ok {
		t.Fatalf("Expected Noop tracker, got %T", tr)
	}
	if err := tr.Update(context.Background(), models.JobRecord{ID: "a"}); err != nil {
		t.Errorf("Noop update failed: %v", err)
	}
}

func TestFields(t *testing.T) {
	rec := models.JobRecord{
		ID:        "a",
		Operation: models.OperationTranscode,
		Status:    models.JobStatusCompleted,
		Progress:  99.96,
		Attempts:  2,
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Output: map[string]any{
			models.OutputFileKey: models.Locator{Bucket: "out", Key: "x/y.mp4", URL: "https://signed"},
		},
	}

	f := Fields(rec)
	if f["status"] != "completed" || f["progress"] != "100.0" || f["attempts"] != 2 {
		t.Errorf("Unexpected fields %v", f)
	}
	if f["output_key"] != "x/y.mp4" {
		t.Errorf("Expected output key, got %v", f["output_key"])
	}
	if _, ok := f["error"]; ok {
		t.Error("Expected no error field")
	}
	if f["updated_at"] != "2024-01-02T03:04:05Z" {
		t.Errorf("Unexpected updated_at %v", f["updated_at"])
	}
	if Key("a") != "job:a" {
		t.Errorf("Unexpected key %s", Key("a"))
	}
}

func TestFinished(t *testing.T) {
	if finished(models.JobStatusProcessing) || !finished(models.JobStatusCancelled) {
		t.Error("Unexpected finished classification")
	}
}
