package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayusman/signstream/internal/infer"
	"github.com/ayusman/signstream/internal/landmark"
	"github.com/ayusman/signstream/internal/prediction"
	"github.com/ayusman/signstream/internal/schema"
)

// fakePredictor is a controllable Predictor for pipeline tests.
type fakePredictor struct {
	mu       sync.Mutex
	response *infer.RawPrediction
	err      error

	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64

	// When set, Predict blocks until the channel is closed.
	block chan struct{}
	// Signalled once per call as it starts.
	started chan struct{}
}

func newFakePredictor(label string, confidence float64) *fakePredictor {
	return &fakePredictor{
		response: &infer.RawPrediction{Label: label, Confidence: confidence, LatencyMs: 40},
		started:  make(chan struct{}, 64),
	}
}

func (f *fakePredictor) set(label string, confidence float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = &infer.RawPrediction{Label: label, Confidence: confidence, LatencyMs: 40}
	f.err = nil
}

func (f *fakePredictor) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePredictor) Predict(ctx context.Context, p infer.Payload) (*infer.RawPrediction, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if n <= max || f.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}

	f.calls.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}

	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.response
	return &resp, nil
}

// fakeClock drives the rate limiter deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// waitFor polls until cond holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newTestPipeline(t *testing.T, cfg Config, pred infer.Predictor) (*Pipeline, *prediction.Store, *fakeClock) {
	t.Helper()
	store := prediction.NewStore(20, nil)
	p, err := New(cfg, nil, pred, store)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	p.now = clk.Now
	return p, store, clk
}

// feedStill feeds n snapshots of the same hand pose, advancing the clock
// between frames; the first frame only establishes the motion baseline.
func feedStill(p *Pipeline, clk *fakeClock, interval time.Duration, n int) {
	hand := landmark.FlatHandPoints()
	for i := 0; i < n; i++ {
		p.OnSnapshot(landmark.HandSnapshot(int64(i)*interval.Milliseconds(), hand))
		clk.Advance(interval)
	}
}

func TestPipeline_SingleFlight(t *testing.T) {
	pred := newFakePredictor("A", 0.95)
	pred.block = make(chan struct{})

	cfg := DefaultConfig()
	p, _, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	// Burst of snapshots, each past the rate-limit interval, while the
	// first call stays blocked in flight.
	feedStill(p, clk, cfg.Interval*2, 10)

	waitFor(t, func() bool { return pred.calls.Load() == 1 })

	if got := pred.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 call while one is in flight, got %d", got)
	}

	// Release the call; the pipeline re-arms and the next admitted
	// snapshot submits again.
	close(pred.block)
	pred.mu.Lock()
	pred.block = nil
	pred.mu.Unlock()

	waitFor(t, func() bool { return !p.inFlight.Load() })

	hand := landmark.FlatHandPoints()
	p.OnSnapshot(landmark.HandSnapshot(9999, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 2 })

	if max := pred.maxSeen.Load(); max > 1 {
		t.Errorf("expected at most 1 concurrent call, saw %d", max)
	}
}

func TestPipeline_RateLimit(t *testing.T) {
	pred := newFakePredictor("A", 0.95)

	cfg := DefaultConfig()
	p, _, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	hand := landmark.FlatHandPoints()

	// Baseline frame, then a submitting frame.
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	p.OnSnapshot(landmark.HandSnapshot(16, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 1 && !p.inFlight.Load() })

	// Clock has not advanced: more frames stay rate limited.
	for i := 0; i < 5; i++ {
		p.OnSnapshot(landmark.HandSnapshot(int64(32+16*i), hand))
	}
	time.Sleep(10 * time.Millisecond)
	if got := pred.calls.Load(); got != 1 {
		t.Errorf("expected rate limiter to hold at 1 call, got %d", got)
	}

	// Past the interval, the next frame submits.
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(200, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 2 })
}

func TestPipeline_MotionGate(t *testing.T) {
	pred := newFakePredictor("A", 0.95)

	cfg := DefaultConfig()
	cfg.MotionThreshold = 0.05
	p, _, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	hand := landmark.FlatHandPoints()

	// First frame establishes the baseline; no submission.
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	clk.Advance(cfg.Interval)

	// Small drift below threshold: allowed.
	p.OnSnapshot(landmark.HandSnapshot(16, landmark.ShiftedHandPoints(hand, 0.01, 0)))
	waitFor(t, func() bool { return pred.calls.Load() == 1 && !p.inFlight.Load() })

	// Large jump above threshold: suppressed even though the interval
	// has elapsed.
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(32, landmark.ShiftedHandPoints(hand, 0.2, 0)))
	time.Sleep(10 * time.Millisecond)
	if got := pred.calls.Load(); got != 1 {
		t.Errorf("expected motion gate to suppress submission, got %d calls", got)
	}

	// Once the hand settles at the new position, submission resumes.
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(48, landmark.ShiftedHandPoints(hand, 0.2, 0)))
	waitFor(t, func() bool { return pred.calls.Load() == 2 })
}

func TestPipeline_PresenceGateResetsRun(t *testing.T) {
	pred := newFakePredictor("A", 0.4) // low tier: needs the full run

	cfg := DefaultConfig()
	cfg.MidConfidence = 0.70
	cfg.HighConfidence = 0.90
	cfg.RunLength = 2
	p, store, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	hand := landmark.FlatHandPoints()

	// Baseline + one admitted observation (vote 1 of 2).
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(16, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 1 && !p.inFlight.Load() })

	if store.Current() != nil {
		t.Fatal("single low-confidence observation must not publish")
	}

	// Hand disappears: the run is reset.
	p.OnSnapshot(landmark.EmptySnapshot(32))

	// Hand returns; the next single observation must not publish via a
	// leftover run. Note the first frame back only rebuilds the baseline.
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(48, hand))
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(64, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 2 && !p.inFlight.Load() })

	if store.Current() != nil {
		t.Fatal("stale run leaked across a detection gap")
	}

	// A second consecutive observation after the gap completes the run.
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(80, hand))
	waitFor(t, func() bool { return store.Current() != nil })

	if cur := store.Current(); cur.Text != "A" {
		t.Errorf("expected published text A, got %q", cur.Text)
	}
}

func TestPipeline_TransportErrorKeepsPublished(t *testing.T) {
	pred := newFakePredictor("HELLO", 0.95)

	cfg := DefaultConfig()
	p, store, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	hand := landmark.FlatHandPoints()

	// Publish once.
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(16, hand))
	waitFor(t, func() bool { return store.Current() != nil && !p.inFlight.Load() })

	// Subsequent calls fail; the published value must not change and the
	// pipeline must return to Armed.
	pred.setError(errors.New("connection refused"))
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(32, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 2 && !p.inFlight.Load() })

	if cur := store.Current(); cur == nil || cur.Text != "HELLO" {
		t.Errorf("published value should survive a transport error, got %+v", cur)
	}

	// Recovery: the next natural submission serves as the retry.
	pred.set("WORLD", 0.95)
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(48, hand))
	waitFor(t, func() bool {
		cur := store.Current()
		return cur != nil && cur.Text == "WORLD"
	})
}

func TestPipeline_LateResponseAfterStopDiscarded(t *testing.T) {
	pred := newFakePredictor("GHOST", 0.99)
	pred.block = make(chan struct{})

	cfg := DefaultConfig()
	p, store, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	hand := landmark.FlatHandPoints()
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(16, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 1 })

	// Stop while the call is outstanding, then let it complete.
	p.Stop()
	close(pred.block)

	waitFor(t, func() bool { return !p.inFlight.Load() })
	if store.Current() != nil {
		t.Error("late response after stop must be discarded")
	}
}

func TestPipeline_EndToEndMidTierScenario(t *testing.T) {
	// Remote service returns HELLO at 0.65 every time; with a mid cutoff
	// of 0.70 that is the voting tier, so publication happens on the
	// K-th consecutive observation and not before.
	pred := newFakePredictor("HELLO", 0.65)

	cfg := DefaultConfig()
	cfg.MidConfidence = 0.70
	cfg.HighConfidence = 0.90
	cfg.RunLength = 2
	p, store, clk := newTestPipeline(t, cfg, pred)
	p.Start()

	hand := landmark.FlatHandPoints()

	p.OnSnapshot(landmark.HandSnapshot(0, hand)) // baseline
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(16, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 1 && !p.inFlight.Load() })

	if store.Current() != nil {
		t.Fatal("published before the run length was satisfied")
	}

	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(32, hand))
	waitFor(t, func() bool { return store.Current() != nil })

	cur := store.Current()
	if cur.Text != "HELLO" {
		t.Errorf("expected HELLO, got %q", cur.Text)
	}
	if cur.Confidence != 0.65 {
		t.Errorf("expected confidence 0.65, got %f", cur.Confidence)
	}
	if len(store.History()) != 1 {
		t.Errorf("expected a single history entry, got %d", len(store.History()))
	}
}

func TestPipeline_SequenceModeBuffersUntilFull(t *testing.T) {
	pred := newFakePredictor("THANKS", 0.95)

	cfg := DefaultConfig()
	cfg.Mode = ModeSequence
	cfg.BufferCapacity = 3
	cfg.MotionThreshold = 0 // unused in sequence mode

	store := prediction.NewStore(20, nil)
	s, err := schema.Parse([]string{"x_right_hand_0", "y_right_hand_0", "z_right_hand_0"})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	p, err := New(cfg, s, pred, store)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	p.now = clk.Now
	p.Start()

	hand := landmark.FlatHandPoints()

	// Two frames: buffer not yet full, no call.
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(16, hand))
	clk.Advance(cfg.Interval)
	time.Sleep(10 * time.Millisecond)
	if got := pred.calls.Load(); got != 0 {
		t.Fatalf("expected no calls before the buffer fills, got %d", got)
	}

	// Third frame fills the buffer and submits the whole sequence.
	p.OnSnapshot(landmark.HandSnapshot(32, hand))
	waitFor(t, func() bool { return pred.calls.Load() == 1 })
}

func TestPipeline_SequenceModeClearsBufferOnGap(t *testing.T) {
	pred := newFakePredictor("THANKS", 0.95)

	cfg := DefaultConfig()
	cfg.Mode = ModeSequence
	cfg.BufferCapacity = 2

	store := prediction.NewStore(20, nil)
	p, err := New(cfg, schema.HandSchema(), pred, store)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	p.now = clk.Now
	p.Start()

	hand := landmark.FlatHandPoints()

	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	p.OnSnapshot(landmark.EmptySnapshot(16)) // gap clears the buffer
	clk.Advance(cfg.Interval)
	p.OnSnapshot(landmark.HandSnapshot(32, hand))
	time.Sleep(10 * time.Millisecond)

	// One frame since the gap: the buffer must have restarted from zero.
	if got := pred.calls.Load(); got != 0 {
		t.Errorf("expected cleared buffer after detection gap, got %d calls", got)
	}
}

func TestNew_SequenceModeRequiresSchema(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSequence

	if _, err := New(cfg, nil, newFakePredictor("A", 0.95), prediction.NewStore(20, nil)); err == nil {
		t.Error("expected an error for sequence mode without a schema")
	}

	// Static mode needs no schema.
	cfg.Mode = ModeStatic
	if _, err := New(cfg, nil, newFakePredictor("A", 0.95), prediction.NewStore(20, nil)); err != nil {
		t.Errorf("unexpected error for static mode without a schema: %v", err)
	}
}

func TestPipeline_NotRunningIgnoresSnapshots(t *testing.T) {
	pred := newFakePredictor("A", 0.95)
	p, _, _ := newTestPipeline(t, DefaultConfig(), pred)

	hand := landmark.FlatHandPoints()
	p.OnSnapshot(landmark.HandSnapshot(0, hand))
	p.OnSnapshot(landmark.HandSnapshot(16, hand))

	time.Sleep(10 * time.Millisecond)
	if got := pred.calls.Load(); got != 0 {
		t.Errorf("expected no calls before Start, got %d", got)
	}
}
