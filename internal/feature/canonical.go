// Package feature turns landmark snapshots into the fixed-order numeric
// feature vectors the inference service expects.
package feature

import (
	"fmt"

	"github.com/ayusman/signstream/internal/landmark"
	"github.com/ayusman/signstream/internal/schema"
)

// Canonicalize maps a snapshot onto the schema's column order. Only the
// first detected instance of each part is consulted. An undetected part,
// or a keypoint index past the end of a short detection, contributes 0.0
// rather than an error.
//
// The result always has exactly schema.Len() values; Canonicalize is a
// pure function of its inputs.
func Canonicalize(snap *landmark.Snapshot, s *schema.Schema) ([]float64, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("empty schema")
	}

	values := make([]float64, s.Len())
	for i, col := range s.Columns() {
		pts := snap.Instance(col.Part)
		if col.Index >= len(pts) {
			continue // absent landmark, leave 0.0
		}

		p := pts[col.Index]
		switch col.Coord {
		case schema.CoordX:
			values[i] = p.X
		case schema.CoordY:
			values[i] = p.Y
		case schema.CoordZ:
			values[i] = p.Z
		}
	}

	return values, nil
}

// HandVector flattens a 21-keypoint hand into the 42-float x,y vector
// used by the low-latency static-sign mode. Depth is dropped; the static
// model was trained on 2D coordinates only.
func HandVector(hand []landmark.Point) []float64 {
	values := make([]float64, 2*len(hand))
	for i, p := range hand {
		values[2*i] = p.X
		values[2*i+1] = p.Y
	}
	return values
}
