package routes

import (
	"errors"
	"fmt"
	"net/http"

	"mediaworker/job"
	"mediaworker/logger"
)

// CancelJobHandler cancels a queued or running job by id
func (h *Handlers) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Cancel job request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodDelete {
		logger.Warnf("Invalid method for cancel endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		logger.Warn("Missing id parameter in cancel request")
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	logger.Infof("Attempting to cancel job: %s", id)
	if err := h.Dispatcher.Cancel(id); err != nil {
		logger.Errorf("Failed to cancel job %s: %v", id, err)
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			http.Error(w, fmt.Sprintf("Job not found: %v", err), http.StatusNotFound)
		case errors.Is(err, job.ErrJobFinished):
			http.Error(w, fmt.Sprintf("Cannot cancel job: %v", err), http.StatusConflict)
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	logger.Infof("Job cancelled successfully: %s", id)
	w.WriteHeader(http.StatusNoContent)
}
