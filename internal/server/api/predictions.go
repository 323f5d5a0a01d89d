package api

import (
	"net/http"

	"github.com/ayusman/signstream/internal/prediction"
)

// PredictionHandler serves the current published prediction.
type PredictionHandler struct {
	predictions *prediction.Store
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(p *prediction.Store) *PredictionHandler {
	return &PredictionHandler{predictions: p}
}

// ServeHTTP handles GET /api/prediction.
func (h *PredictionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	current := h.predictions.Current()
	if current == nil {
		writeError(w, http.StatusNotFound, "No prediction published yet")
		return
	}

	writeJSON(w, http.StatusOK, current)
}
