// Package landmark defines the detection snapshot types produced by the
// browser-side MediaPipe detector and consumed by the recognition pipeline.
package landmark

// Part identifies a tracked body part within a snapshot.
type Part string

const (
	// PartFace is the face mesh.
	PartFace Part = "face"
	// PartPose is the upper-body pose skeleton.
	PartPose Part = "pose"
	// PartLeftHand is the left hand.
	PartLeftHand Part = "left_hand"
	// PartRightHand is the right hand.
	PartRightHand Part = "right_hand"
)

// Keypoint counts per part, following MediaPipe Holistic conventions.
// See: https://developers.google.com/mediapipe/solutions/vision/holistic_landmarker
const (
	FaceLandmarks = 468
	PoseLandmarks = 33
	HandLandmarks = 21
)

// Hand landmark indices following MediaPipe convention.
const (
	Wrist     = 0
	ThumbTip  = 4
	IndexMCP  = 5
	IndexTip  = 8
	MiddleMCP = 9
	MiddleTip = 12
	RingTip   = 16
	PinkyTip  = 20
)

// Size returns the fixed keypoint count for the part, or 0 for an
// unknown part.
func (p Part) Size() int {
	switch p {
	case PartFace:
		return FaceLandmarks
	case PartPose:
		return PoseLandmarks
	case PartLeftHand, PartRightHand:
		return HandLandmarks
	}
	return 0
}

// Valid reports whether p is one of the tracked parts.
func (p Part) Valid() bool {
	return p.Size() > 0
}

// Point represents a single detected keypoint in normalized image
// coordinates (x, y in [0,1], z relative depth).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Snapshot is one frame's complete detection result. A part maps to zero
// or more keypoint sets; an absent part means the detector did not find it
// in that frame, which is distinct from zero-valued keypoints.
//
// Snapshots are constructed once per detection cycle, never mutated, and
// consumed synchronously by the pipeline.
type Snapshot struct {
	TimestampMs int64              `json:"timestamp_ms"`
	Parts       map[Part][][]Point `json:"parts"`
}

// Instance returns the first detected keypoint set for the part, or nil
// if the part was not detected. Detections beyond the first instance are
// ignored throughout the pipeline.
func (s *Snapshot) Instance(p Part) []Point {
	if s == nil {
		return nil
	}
	sets := s.Parts[p]
	if len(sets) == 0 || len(sets[0]) == 0 {
		return nil
	}
	return sets[0]
}

// Hand returns the tracked hand for recognition: the right hand when
// detected, otherwise the left. Returns nil when no hand is present.
func (s *Snapshot) Hand() []Point {
	if pts := s.Instance(PartRightHand); pts != nil {
		return pts
	}
	return s.Instance(PartLeftHand)
}
