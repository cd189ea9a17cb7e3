package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSegmentWidthCenter validates the discrete width convention and
// the center derived from it.
func TestSegmentWidthCenter(t *testing.T) {
	s := Segment{X1: 0, X2: 15}
	assert.Equal(t, float32(16), s.Width(), "inclusive endpoints should give width 16")
	assert.Equal(t, float32(7.5), s.Center(), "center should sit between the endpoints")

	unit := Segment{X1: 3, X2: 3}
	assert.Equal(t, float32(1), unit.Width(), "a single-position segment has width 1")
	assert.Equal(t, float32(3), unit.Center(), "a single-position segment is its own center")
}

// TestSegmentTranslate validates that both endpoints shift together.
func TestSegmentTranslate(t *testing.T) {
	s := Segment{X1: 2, X2: 10}.Translate(16)
	assert.Equal(t, Segment{X1: 18, X2: 26}, s, "translation should shift both endpoints")
}

// TestSegmentClip validates boundary clipping.
func TestSegmentClip(t *testing.T) {
	assert.Equal(t, Segment{X1: 0, X2: 23}, Segment{X1: -8, X2: 23}.Clip(0, 100),
		"negative start should clip to the lower bound")
	assert.Equal(t, Segment{X1: 90, X2: 100}, Segment{X1: 90, X2: 130}.Clip(0, 100),
		"overlong end should clip to the upper bound")
	assert.Equal(t, Segment{X1: 5, X2: 10}, Segment{X1: 5, X2: 10}.Clip(0, 100),
		"an in-range segment should be untouched")
	assert.Equal(t, Segment{X1: 0, X2: 0}, Segment{X1: -20, X2: -10}.Clip(0, 100),
		"a fully out-of-range segment should collapse onto the bound")
}

// TestCalculateIoU validates the 1-D IoU against hand-computed values.
func TestCalculateIoU(t *testing.T) {
	a := Segment{X1: 0, X2: 10}

	assert.Equal(t, float32(1), CalculateIoU(a, a), "identical segments should score 1")
	assert.Equal(t, float32(0), CalculateIoU(a, Segment{X1: 50, X2: 60}),
		"disjoint segments should score 0")

	// Intersection [1,10] has width 10; union is 11 + 11 - 10 = 12.
	b := Segment{X1: 1, X2: 11}
	assert.InDelta(t, 10.0/12.0, CalculateIoU(a, b), 1e-6, "overlap should follow the inclusive-width convention")
	assert.InDelta(t, CalculateIoU(a, b), CalculateIoU(b, a), 1e-6, "IoU should be symmetric")

	// Touching at a single shared position still intersects under
	// inclusive endpoints.
	c := Segment{X1: 10, X2: 20}
	assert.InDelta(t, 1.0/21.0, CalculateIoU(a, c), 1e-6, "a shared endpoint counts as one position of overlap")
}

// TestSegmentString validates the display format.
func TestSegmentString(t *testing.T) {
	assert.Equal(t, "[1.50, 3.00]", Segment{X1: 1.5, X2: 3}.String())
}
