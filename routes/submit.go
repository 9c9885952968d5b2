package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mediaworker/logger"
	"mediaworker/models"
)

// SubmitResponse is returned for an accepted job.
type SubmitResponse struct {
	ID     string           `json:"id"`
	Status models.JobStatus `json:"status"`
}

// SubmitHandler accepts a job. The job comes from the token's job claim or,
// when the claim is empty, from a JSON body.
func (h *Handlers) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.verifyJWT(r)
	if err != nil {
		logger.Warnf("Rejected job submission from %s: %v", r.RemoteAddr, err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	req := claims.Job
	if req.Operation == "" {
		body := http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	rec, err := h.Dispatcher.Submit(req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrInvalidParameters) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Errorf("Failed to submit job: %v", err)
		http.Error(w, "Failed to submit job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: rec.ID, Status: rec.Status})
}
