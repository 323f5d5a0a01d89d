package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/signstream/internal/pipeline"
)

// SessionHandler controls the capture session lifecycle.
type SessionHandler struct {
	pipeline *pipeline.Pipeline
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(p *pipeline.Pipeline) *SessionHandler {
	return &SessionHandler{pipeline: p}
}

type sessionResponse struct {
	Running bool `json:"running"`
}

// ServeHTTP routes session requests:
// GET /api/session, POST /api/session/{start|stop|reset}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.Trim(action, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Running: h.pipeline.Running()})
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch action {
	case "start":
		h.pipeline.Start()
	case "stop":
		h.pipeline.Stop()
	case "reset":
		h.pipeline.Reset()
	default:
		writeError(w, http.StatusNotFound, "Unknown session action")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Running: h.pipeline.Running()})
}
