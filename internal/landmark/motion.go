package landmark

import "math"

// MeanDisplacement returns the mean per-keypoint Euclidean distance
// between two hand keypoint sets, in normalized coordinates.
//
// It is the basis of the pipeline's motion gate: a hand that moved more
// than a small threshold between consecutive frames is mid-transition
// between two signs and should not be classified.
//
// Mismatched or empty sets return +Inf so a tracking glitch is treated
// as motion rather than stillness.
func MeanDisplacement(prev, cur []Point) float64 {
	if len(prev) == 0 || len(cur) == 0 || len(prev) != len(cur) {
		return math.Inf(1)
	}

	var total float64
	for i := range cur {
		dx := cur[i].X - prev[i].X
		dy := cur[i].Y - prev[i].Y
		dz := cur[i].Z - prev[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}

	return total / float64(len(cur))
}
