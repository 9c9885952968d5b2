package routes

import (
	"encoding/json"
	"net/http"

	"mediaworker/credentials"
	"mediaworker/logger"
)

// RegisterCredentialsHandler stores a storage credential profile and returns
// the key that selects it.
func (h *Handlers) RegisterCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := h.verifyJWT(r); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	credsBody := make(map[string]string)
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&credsBody); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(credsBody) == 0 {
		http.Error(w, "Empty credentials", http.StatusBadRequest)
		return
	}

	key, err := credentials.RegisterCredentials(credsBody)
	if err != nil {
		logger.Errorf("Failed to store credentials: %v", err)
		http.Error(w, "Failed to store credentials", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_key": key,
	})
}
