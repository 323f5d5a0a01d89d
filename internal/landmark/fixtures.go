package landmark

// Test fixtures shared by pipeline and feature tests. These produce
// deterministic hand poses; the exact shape does not matter, only that
// distinct poses are far apart and shifted poses are near each other.

// FlatHandPoints returns a preset 21-keypoint hand laid out on a grid,
// roughly centered in the frame.
func FlatHandPoints() []Point {
	pts := make([]Point, HandLandmarks)
	for i := range pts {
		pts[i] = Point{
			X: 0.40 + 0.02*float64(i%5),
			Y: 0.70 - 0.05*float64(i/5),
			Z: -0.01 * float64(i%3),
		}
	}
	return pts
}

// ShiftedHandPoints returns a copy of pts translated by (dx, dy). Useful
// for exercising the motion gate with a known displacement.
func ShiftedHandPoints(pts []Point, dx, dy float64) []Point {
	shifted := make([]Point, len(pts))
	for i, p := range pts {
		shifted[i] = Point{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
	}
	return shifted
}

// HandSnapshot returns a snapshot containing only the right hand.
func HandSnapshot(timestampMs int64, hand []Point) *Snapshot {
	return &Snapshot{
		TimestampMs: timestampMs,
		Parts: map[Part][][]Point{
			PartRightHand: {hand},
		},
	}
}

// EmptySnapshot returns a snapshot with no detected parts.
func EmptySnapshot(timestampMs int64) *Snapshot {
	return &Snapshot{
		TimestampMs: timestampMs,
		Parts:       map[Part][][]Point{},
	}
}
