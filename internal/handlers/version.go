package handlers

import (
	"net/http"

	"video-catalog/internal/startup"
)

// GetVersion reports build metadata.
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, startup.GetBuildInfo())
}
