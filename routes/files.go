package routes

import (
	"errors"
	"net/http"
	"os"

	"mediaworker/logger"
)

// FileHandler serves objects written by the direct serve backend. The token
// query parameter must have been issued for exactly this bucket and key.
func (h *Handlers) FileHandler(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	key := r.PathValue("key")

	if err := h.Files.Authorize(r.URL.Query().Get("token"), bucket, key); err != nil {
		logger.Warnf("Rejected download of %s/%s: %v", bucket, key, err)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	path, err := h.Files.Path(bucket, key)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, path)
}
