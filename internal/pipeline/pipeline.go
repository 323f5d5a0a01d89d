// Package pipeline implements the real-time landmark-to-prediction
// pipeline: it gates the irregular per-frame snapshot stream against the
// expensive remote inference call and stabilizes the results.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/signstream/internal/feature"
	"github.com/ayusman/signstream/internal/infer"
	"github.com/ayusman/signstream/internal/landmark"
	"github.com/ayusman/signstream/internal/prediction"
	"github.com/ayusman/signstream/internal/schema"
)

// Pipeline is one recognition pipeline instance, owning all gate and
// stabilization state for a single capture session source.
//
// OnSnapshot is the frame callback: it runs synchronously, never blocks,
// and dispatches at most one asynchronous inference call at a time. All
// mutable state is confined to the frame callback and the completion
// continuation.
type Pipeline struct {
	cfg    Config
	schema *schema.Schema
	client infer.Predictor
	store  *prediction.Store

	now func() time.Time // swapped out in tests

	inFlight atomic.Bool

	mu         sync.Mutex
	running    bool
	generation uint64
	lastSubmit time.Time
	prevHand   []landmark.Point
	stab       *Stabilizer
	buffer     *feature.Buffer
}

// New creates a Pipeline. In sequence mode the schema fixes the feature
// vector layout and must be non-nil; static mode uses the builtin hand
// vector and may pass a nil schema.
func New(cfg Config, s *schema.Schema, client infer.Predictor, store *prediction.Store) (*Pipeline, error) {
	if cfg.Mode == ModeSequence && s == nil {
		return nil, errors.New("pipeline: sequence mode requires a column schema")
	}
	return &Pipeline{
		cfg:    cfg,
		schema: s,
		client: client,
		store:  store,
		now:    time.Now,
		stab:   NewStabilizer(cfg),
		buffer: feature.NewBuffer(cfg.BufferCapacity),
	}, nil
}

// Start arms the pipeline for a new capture session. Gate and
// stabilization state from any previous session is discarded.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.generation++
	p.lastSubmit = time.Time{}
	p.prevHand = nil
	p.stab.Reset()
	p.buffer.Reset()
	log.Printf("pipeline started (mode=%s interval=%s)", p.cfg.Mode, p.cfg.Interval)
}

// Stop disarms the pipeline and clears the published state. An in-flight
// inference call is not cancelled; its late result is discarded by the
// generation check.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.generation++
	p.mu.Unlock()

	p.store.Clear()
	log.Println("pipeline stopped")
}

// Running reports whether a session is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Reset clears the published prediction and history without stopping
// the session. Used by the explicit user reset.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.stab.Reset()
	p.mu.Unlock()

	p.store.Clear()
}

// OnSnapshot is the per-frame entry point. It evaluates the admission
// checks and, when they all pass, dispatches one inference call without
// blocking the caller.
//
// Admission, in order: session running, hand present (absence resets
// stabilization and the motion baseline), motion gate (static mode),
// rate limit, single-flight.
func (p *Pipeline) OnSnapshot(snap *landmark.Snapshot) {
	p.mu.Lock()

	if !p.running || snap == nil {
		p.mu.Unlock()
		return
	}

	hand := snap.Hand()
	if hand == nil {
		// Detection gap: a normal state transition, not an error.
		p.stab.Reset()
		p.prevHand = nil
		if p.cfg.Mode == ModeSequence {
			p.buffer.Reset()
		}
		p.mu.Unlock()
		return
	}

	var payload infer.Payload
	switch p.cfg.Mode {
	case ModeSequence:
		vec, err := feature.Canonicalize(snap, p.schema)
		if err != nil {
			// Schema is validated at startup; this indicates a bug.
			p.mu.Unlock()
			log.Printf("canonicalize failed: %v", err)
			return
		}
		p.buffer.Push(vec)
		if !p.buffer.Full() {
			p.mu.Unlock()
			return
		}
		payload = infer.Payload{
			Frames: p.buffer.Frames(),
			Mode:   string(ModeSequence),
			Width:  p.cfg.SourceWidth,
			Height: p.cfg.SourceHeight,
		}

	default:
		// Motion gate: a hand moving faster than the threshold is
		// mid-transition between signs. The first frame after a gap has
		// no baseline and only establishes one.
		displacement := landmark.MeanDisplacement(p.prevHand, hand)
		p.prevHand = hand
		if displacement > p.cfg.MotionThreshold {
			p.mu.Unlock()
			return
		}
		payload = infer.Payload{
			Frames: [][]float64{feature.HandVector(hand)},
			Mode:   string(ModeStatic),
			Width:  p.cfg.SourceWidth,
			Height: p.cfg.SourceHeight,
		}
	}

	now := p.now()
	if now.Sub(p.lastSubmit) < p.cfg.Interval {
		p.mu.Unlock()
		return
	}

	// Single-flight: a second ready snapshot while a call is outstanding
	// is dropped, never queued — a queued request would describe a hand
	// pose that no longer matches the current frame.
	if !p.inFlight.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return
	}

	p.lastSubmit = now
	gen := p.generation
	p.mu.Unlock()

	go p.dispatch(gen, payload)
}

// dispatch performs the inference call and feeds the result to the
// stabilizer. Runs on its own goroutine; exactly one is live at a time.
func (p *Pipeline) dispatch(gen uint64, payload infer.Payload) {
	defer p.inFlight.Store(false)

	raw, err := p.client.Predict(context.Background(), payload)
	if err != nil {
		// Transient transport failure: log and return to Armed. The next
		// naturally admitted frame is the retry.
		log.Printf("inference call failed: %v", err)
		return
	}

	p.mu.Lock()
	if !p.running || gen != p.generation {
		// Late result from a stopped or restarted session.
		p.mu.Unlock()
		return
	}
	pub, ok := p.stab.Observe(raw)
	p.mu.Unlock()

	if ok {
		p.store.SetPublished(pub)
	}
}
