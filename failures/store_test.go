package failures

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"mediaworker/encoder"
	"mediaworker/models"
)

func initStore(t *testing.T) {
	t.Helper()
	if err := Init(filepath.Join(t.TempDir(), "failures.db")); err != nil {
		t.Fatalf("Failed to initialize failure store: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestStoreFailureKeepsEngineDiagnostics(t *testing.T) {
	initStore(t)

	rec := models.JobRecord{ID: "job-bad", Operation: models.OperationTranscode, Attempts: 3}
	err := &encoder.EngineError{ExitCode: 1, Stderr: "moov atom not found\n", Err: errors.New("exit status 1")}
	if storeErr := StoreFailure(rec, err); storeErr != nil {
		t.Fatalf("StoreFailure failed: %v", storeErr)
	}

	got, getErr := GetFailure("job-bad")
	if getErr != nil || got == nil {
		t.Fatalf("Expected failure record, got %+v (%v)", got, getErr)
	}
	if got.Kind != "engine_failure" {
		t.Errorf("Expected engine_failure kind, got %s", got.Kind)
	}
	if got.Stderr != "moov atom not found\n" {
		t.Errorf("Expected stderr to be kept, got %q", got.Stderr)
	}
	if got.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", got.Attempts)
	}

	list, listErr := ListFailures()
	if listErr != nil || len(list) != 1 {
		t.Errorf("Expected one failure listed, got %d (%v)", len(list), listErr)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: no url", models.ErrInvalidInput), "invalid_input"},
		{fmt.Errorf("%w: bad width", models.ErrInvalidParameters), "invalid_parameters"},
		{fmt.Errorf("%w: reset", models.ErrStorageFailure), "storage_failure"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
