// Package server provides the HTTP and WebSocket surface of the
// signstream service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/prediction"
	"github.com/ayusman/signstream/internal/server/api"
	"github.com/ayusman/signstream/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	Store       *store.Store
	Predictions *prediction.Store
	Pipeline    *pipeline.Pipeline
}

// Server represents the HTTP server for the signstream service.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Predictions != nil {
		s.mux.Handle("/api/prediction", api.NewPredictionHandler(s.config.Predictions))

		var log *store.HistoryRepository
		if s.config.Store != nil {
			log = s.config.Store.History()
		}
		historyHandler := api.NewHistoryHandler(s.config.Predictions, log)
		s.mux.Handle("/api/history", historyHandler)
		s.mux.Handle("/api/history/", historyHandler)

		// Broadcast published predictions to connected clients.
		predictionsWS := NewPredictionsHandler()
		s.config.Predictions.Subscribe(predictionsWS.Publish)
		s.mux.Handle("/ws/predictions", predictionsWS)
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store.Settings()))
	}

	if s.config.Pipeline != nil {
		sessionHandler := api.NewSessionHandler(s.config.Pipeline)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)

		// Snapshot ingest from the browser-side detector.
		s.mux.Handle("/ws/landmarks", NewLandmarksHandler(s.config.Pipeline))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	running := false
	if s.config.Pipeline != nil {
		running = s.config.Pipeline.Running()
	}

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"running": running,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
