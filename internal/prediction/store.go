// Package prediction holds the published prediction state: the single
// current value shown to observers and a bounded, de-duplicated history.
package prediction

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signstream/internal/infer"
)

// DefaultHistoryCapacity bounds the in-memory history.
const DefaultHistoryCapacity = 20

// Published is the current prediction exposed to observers.
type Published struct {
	Text             string            `json:"text"`
	Confidence       float64           `json:"confidence"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Alternates       []infer.Alternate `json:"alternates,omitempty"`
	CapturedAt       time.Time         `json:"captured_at"`
}

// Entry is one history record, newest first in listings.
type Entry struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	Confidence       float64   `json:"confidence"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CapturedAt       time.Time `json:"captured_at"`
}

// HistoryLog is an optional durable sink for history entries. The SQLite
// store implements it; a nil log keeps history in memory only.
type HistoryLog interface {
	Append(e Entry) error
	Clear() error
}

// Store holds the published prediction and history. The stabilizer is
// the single writer; HTTP handlers and the WebSocket broadcaster read.
type Store struct {
	mu       sync.RWMutex
	current  *Published
	history  []Entry // newest first
	capacity int
	log      HistoryLog
	subs     []func(Published)
}

// NewStore creates a Store with the given history capacity (values < 1
// fall back to DefaultHistoryCapacity). log may be nil.
func NewStore(capacity int, log HistoryLog) *Store {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &Store{
		capacity: capacity,
		log:      log,
	}
}

// Subscribe registers a callback invoked after every publish. Callbacks
// run on the publisher's goroutine and must not block. Must be called
// before the pipeline starts.
func (s *Store) Subscribe(fn func(Published)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// SetPublished replaces the current prediction. A history entry is
// appended only when the text differs from the newest entry; a repeat
// of the same text updates the current value but not the history, even
// if confidence or timing changed.
func (s *Store) SetPublished(p Published) {
	s.mu.Lock()

	s.current = &p

	if len(s.history) == 0 || s.history[0].Text != p.Text {
		entry := Entry{
			ID:               uuid.New().String(),
			Text:             p.Text,
			Confidence:       p.Confidence,
			ProcessingTimeMs: p.ProcessingTimeMs,
			CapturedAt:       p.CapturedAt,
		}

		s.history = append([]Entry{entry}, s.history...)
		if len(s.history) > s.capacity {
			s.history = s.history[:s.capacity]
		}

		if s.log != nil {
			if err := s.log.Append(entry); err != nil {
				// In-memory state stays authoritative for display.
				log.Printf("history log append failed: %v", err)
			}
		}
	}

	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
}

// Current returns the latest published prediction, or nil if none.
func (s *Store) Current() *Published {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// History returns a copy of the history, newest first.
func (s *Store) History() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// Clear empties the current prediction and in-memory history. The
// durable log is left alone; truncating it is an explicit operation on
// the SQLite store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.history = s.history[:0]
}
