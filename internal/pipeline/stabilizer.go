package pipeline

import (
	"time"

	"github.com/ayusman/signstream/internal/infer"
	"github.com/ayusman/signstream/internal/prediction"
)

// Stabilizer accumulates consecutive raw predictions and decides when a
// new value is trustworthy enough to display.
//
// Three tiers: high-confidence predictions pass through immediately,
// mid-confidence predictions are trusted because the model is already
// discriminative at that level, and low-but-admitted confidence needs
// RunLength consecutive agreeing labels before publishing. The run-length
// requirement filters transient misclassifications at the cost of a few
// frames of latency.
//
// Not safe for concurrent use; the owning pipeline serializes access.
type Stabilizer struct {
	cfg    Config
	recent []string // FIFO, capacity cfg.RunLength
}

// NewStabilizer creates a Stabilizer with the given thresholds.
func NewStabilizer(cfg Config) *Stabilizer {
	if cfg.RunLength < 1 {
		cfg.RunLength = 1
	}
	return &Stabilizer{
		cfg:    cfg,
		recent: make([]string, 0, cfg.RunLength),
	}
}

// Observe feeds one raw prediction in. It returns the value to publish
// and true, or false when the prediction should not be displayed yet.
//
// A discarded low-confidence prediction does not touch the vote ring; an
// admitted-but-unpublished one still votes, so a later observation can
// complete the run.
func (st *Stabilizer) Observe(raw *infer.RawPrediction) (prediction.Published, bool) {
	if raw == nil || raw.Confidence <= st.cfg.DiscardThreshold {
		return prediction.Published{}, false
	}

	st.recent = append(st.recent, raw.Label)
	if len(st.recent) > st.cfg.RunLength {
		st.recent = st.recent[1:]
	}

	stable := len(st.recent) == st.cfg.RunLength && allEqual(st.recent)

	if raw.Confidence > st.cfg.HighConfidence ||
		raw.Confidence > st.cfg.MidConfidence ||
		stable {
		return prediction.Published{
			Text:             raw.Label,
			Confidence:       raw.Confidence,
			ProcessingTimeMs: raw.LatencyMs,
			Alternates:       raw.Alternates,
			CapturedAt:       time.Now(),
		}, true
	}

	return prediction.Published{}, false
}

// Reset clears the vote ring. Called whenever the tracked hand leaves
// the frame so a stale run cannot leak into the next gesture.
func (st *Stabilizer) Reset() {
	st.recent = st.recent[:0]
}

func allEqual(labels []string) bool {
	for _, l := range labels[1:] {
		if l != labels[0] {
			return false
		}
	}
	return true
}
