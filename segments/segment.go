// Package segments - 1-D interval primitives for temporal detection.
package segments

import "fmt"

// Segment is a lightweight interval along the sequence axis.
type Segment struct {
	// X1, X2 are inclusive endpoints. Widths follow the discrete
	// convention X2 - X1 + 1; the same convention is used for anchor
	// generation, offset decoding and IoU so the three stay aligned.
	X1, X2 float32
}

// Width returns the discrete width of the segment.
func (s Segment) Width() float32 {
	return s.X2 - s.X1 + 1
}

// Center returns the center coordinate of the segment.
func (s Segment) Center() float32 {
	return s.X1 + 0.5*(s.Width()-1)
}

// Translate shifts both endpoints by the given amount.
func (s Segment) Translate(by float32) Segment {
	return Segment{X1: s.X1 + by, X2: s.X2 + by}
}

// Clip bounds both endpoints to [lo, hi].
func (s Segment) Clip(lo, hi float32) Segment {
	return Segment{
		X1: min(max(s.X1, lo), hi),
		X2: min(max(s.X2, lo), hi),
	}
}

func (s Segment) String() string {
	return fmt.Sprintf("[%.2f, %.2f]", s.X1, s.X2)
}

// CalculateIoU measures the overlap between two segments as the ratio
// of their intersection to their union.
//
// The intersection starts at the larger of the two left endpoints and
// ends at the smaller of the two right endpoints; if that span is empty
// the segments do not overlap and the IoU is 0. The union follows the
// inclusion-exclusion identity:
//
//	Union(A, B) = Width(A) + Width(B) - Intersection(A, B)
//
// Both terms use the inclusive-endpoint width convention, so two
// identical segments score exactly 1.0.
//
// Arguments:
//   - a: The first segment.
//   - b: The other segment to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
func CalculateIoU(a, b Segment) float32 {
	inter := min(a.X2, b.X2) - max(a.X1, b.X1) + 1
	if inter <= 0 {
		return 0.0
	}

	union := a.Width() + b.Width() - inter
	return inter / union
}
