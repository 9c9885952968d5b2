package routes

import (
	"net/http"

	"mediaworker/failures"
	"mediaworker/logger"
)

// FailureQueryHandler handles queries for job failures
func FailureQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id parameter required", http.StatusBadRequest)
		return
	}

	record, err := failures.GetFailure(id)
	if err != nil {
		logger.Errorf("Failed to query failure for job %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"id":      id,
			"status":  "not_found",
			"message": "No failure recorded for this job",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        record.ID,
		"status":    "failed",
		"operation": record.Operation,
		"timestamp": record.Timestamp,
		"kind":      record.Kind,
		"error":     record.Error,
		"stderr":    record.Stderr,
		"attempts":  record.Attempts,
		"job_data":  record.JobData,
	})
}

// FailureListHandler handles listing all failures (admin endpoint)
func FailureListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	failuresList, err := failures.ListFailures()
	if err != nil {
		logger.Errorf("Failed to list failures: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"failures": failuresList,
		"count":    len(failuresList),
	})
}
