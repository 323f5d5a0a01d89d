package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/signstream/internal/store"
)

// SettingsHandler exposes the persisted key-value settings that the UI
// uses to carry tuned thresholds across restarts.
type SettingsHandler struct {
	settings *store.SettingsRepository
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s *store.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settings: s}
}

// ServeHTTP routes GET and PUT requests for /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// list handles GET /api/settings and returns all settings.
func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// update handles PUT /api/settings with a flat string-to-string object.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "No settings provided")
		return
	}

	for key, value := range req {
		if err := h.settings.Set(key, value); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store setting")
			return
		}
	}

	settings, err := h.settings.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
