package pipeline

import "time"

// Mode selects how feature vectors are submitted to the recognizer.
type Mode string

const (
	// ModeStatic submits a single 42-float hand vector per call. Lowest
	// latency, used for static signs.
	ModeStatic Mode = "static"
	// ModeSequence submits the rolling buffer of full schema vectors
	// once it has filled, then keeps sliding.
	ModeSequence Mode = "sequence"
)

// Config holds the pipeline's tunable constants. The source variants of
// this pipeline disagreed on the exact numbers; these defaults are one
// coherent configuration and every value is overridable.
type Config struct {
	Mode Mode

	// Interval is the minimum time between inference submissions.
	Interval time.Duration

	// DiscardThreshold drops raw predictions at or below this confidence
	// without touching the stabilizer's vote ring.
	DiscardThreshold float64

	// MidConfidence publishes immediately above this confidence.
	MidConfidence float64

	// HighConfidence also publishes immediately; kept distinct from
	// MidConfidence so the two tiers can be tuned apart.
	HighConfidence float64

	// RunLength is the number of consecutive agreeing low-confidence
	// predictions required to publish.
	RunLength int

	// MotionThreshold is the mean keypoint displacement (normalized
	// coordinates) above which the hand counts as mid-transition and
	// submission is suppressed. Static mode only.
	MotionThreshold float64

	// BufferCapacity is the sequence-mode frame buffer size.
	BufferCapacity int

	// SourceWidth and SourceHeight describe the capture resolution and
	// are forwarded to the recognizer as metadata.
	SourceWidth  int
	SourceHeight int
}

// DefaultConfig returns the configuration used by the demo.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeStatic,
		Interval:         150 * time.Millisecond,
		DiscardThreshold: 0.30,
		MidConfidence:    0.65,
		HighConfidence:   0.85,
		RunLength:        2,
		MotionThreshold:  0.05,
		BufferCapacity:   30,
		SourceWidth:      640,
		SourceHeight:     480,
	}
}
