package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/signstream/internal/prediction"
	"github.com/ayusman/signstream/internal/store"
)

// HistoryHandler serves and clears the prediction history. Listing
// reads the in-memory store; single-entry lookups fall back to the
// durable log, and DELETE also truncates it.
type HistoryHandler struct {
	predictions *prediction.Store
	log         *store.HistoryRepository
}

// NewHistoryHandler creates a new HistoryHandler. log may be nil when
// the service runs without persistence.
func NewHistoryHandler(p *prediction.Store, log *store.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{predictions: p, log: log}
}

type listHistoryResponse struct {
	Entries []prediction.Entry `json:"entries"`
}

// ServeHTTP routes requests for /api/history and /api/history/{id}.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history"), "/")

	if id != "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.get(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.clear(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// list handles GET /api/history, newest first.
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	entries := h.predictions.History()
	if entries == nil {
		entries = []prediction.Entry{}
	}

	writeJSON(w, http.StatusOK, listHistoryResponse{Entries: entries})
}

// get handles GET /api/history/{id}. The in-memory window is checked
// first; the durable log then covers entries already evicted from it.
func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	for _, e := range h.predictions.History() {
		if e.ID == id {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}

	if h.log != nil {
		entry, err := h.log.GetByID(id)
		if err == nil {
			writeJSON(w, http.StatusOK, entry)
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("failed to load history entry %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to load history entry")
			return
		}
	}

	writeError(w, http.StatusNotFound, "History entry not found")
}

// clear handles DELETE /api/history: the explicit user reset. Unlike a
// session stop, this also truncates the durable log.
func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	h.predictions.Clear()

	if h.log != nil {
		if err := h.log.Clear(); err != nil {
			log.Printf("failed to clear history log: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to clear history")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
