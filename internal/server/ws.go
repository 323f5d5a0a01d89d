package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signstream/internal/landmark"
	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/prediction"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksHandler ingests per-frame landmark snapshots from the
// browser-side detector and feeds them to the pipeline.
type LandmarksHandler struct {
	pipeline *pipeline.Pipeline
}

// NewLandmarksHandler creates a new LandmarksHandler for the pipeline.
func NewLandmarksHandler(p *pipeline.Pipeline) *LandmarksHandler {
	return &LandmarksHandler{pipeline: p}
}

// ServeHTTP upgrades the connection and consumes snapshot messages until
// the client disconnects. Malformed messages are skipped; the detector
// keeps sending and the next frame is a fresh start.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var snap landmark.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Printf("skipping malformed snapshot: %v", err)
			continue
		}

		h.pipeline.OnSnapshot(&snap)
	}
}

// translationMessage is the wire format pushed to prediction subscribers.
type translationMessage struct {
	Type             string  `json:"type"`
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	Timestamp        int64   `json:"timestamp"`
}

// PredictionsHandler pushes published predictions to all connected
// clients. Consecutive publishes with the same text are sent only once,
// so a static sign held for seconds does not flood subscribers.
type PredictionsHandler struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	lastText string
}

// NewPredictionsHandler creates a new PredictionsHandler.
func NewPredictionsHandler() *PredictionsHandler {
	return &PredictionsHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PredictionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish broadcasts a published prediction. Registered as a prediction
// store subscriber; runs on the pipeline's completion goroutine, so it
// only writes and never blocks on reads.
func (h *PredictionsHandler) Publish(p prediction.Published) {
	h.mu.Lock()
	if p.Text == h.lastText {
		h.mu.Unlock()
		return
	}
	h.lastText = p.Text
	h.mu.Unlock()

	msg, err := json.Marshal(translationMessage{
		Type:             "translation",
		Text:             p.Text,
		Confidence:       p.Confidence,
		ProcessingTimeMs: p.ProcessingTimeMs,
		Timestamp:        time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}
