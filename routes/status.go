package routes

import (
	"errors"
	"fmt"
	"net/http"

	"mediaworker/job"
	"mediaworker/logger"
)

// JobStatusHandler returns the record of a job by id
func (h *Handlers) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Job status request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for status endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		logger.Warn("Missing id parameter in status request")
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	rec, err := h.Dispatcher.Status(id)
	if errors.Is(err, job.ErrJobNotFound) {
		logger.Warnf("Job not found: %s", id)
		http.Error(w, fmt.Sprintf("Job with id %s not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("Failed to load job %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Debugf("Job status: id=%s, status=%s", id, rec.Status)
	writeJSON(w, http.StatusOK, rec)
}
