package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"mediaworker/job"
	"mediaworker/logger"
	"mediaworker/metrics"
	"mediaworker/models"
	"mediaworker/utils"
	writerbackends "mediaworker/writerBackends"
)

// Handlers holds what the HTTP endpoints need from the running worker.
type Handlers struct {
	Dispatcher *job.Dispatcher
	JWTSecret  []byte
	// Files is set when outputs are served by this process.
	Files *writerbackends.DirectServeStore
}

// Register installs all routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/jobs", h.SubmitHandler)
	mux.HandleFunc("/status", h.JobStatusHandler)
	mux.HandleFunc("/cancel", h.CancelJobHandler)
	mux.HandleFunc("/credentials", h.RegisterCredentialsHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
	mux.HandleFunc("/failures", FailureQueryHandler)
	mux.HandleFunc("/failures/list", FailureListHandler)
	mux.HandleFunc("/success", SuccessQueryHandler)
	mux.HandleFunc("/success/list", SuccessListHandler)
	mux.Handle("/metrics", metrics.Handler())
	if h.Files != nil {
		mux.HandleFunc("GET /files/{bucket}/{key...}", h.FileHandler)
	}
	logger.Info("HTTP routes registered successfully")
}

// verifyJWT verifies the JWT from the request and returns the claims
func (h *Handlers) verifyJWT(r *http.Request) (*models.WorkerJWT, error) {
	if len(h.JWTSecret) == 0 {
		return nil, fmt.Errorf("token verification is not configured")
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	return utils.VerifyWorkerJWT(token, utils.VerifyConfig{SecretKey: h.JWTSecret})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}
