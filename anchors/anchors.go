// Package anchors - dense reference segment grids for proposal regression.
package anchors

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/seqvision/go-segdet/segments"
)

// GenerateBase produces one anchor per scale from a reference interval
// of the given stride.
//
// The reference spans [0, stride-1]. Every scale rescales the reference
// width about its center, so all base anchors of a grid position share
// one center regardless of scale.
//
// Arguments:
//   - stride: The grid step, also the width of the reference interval.
//   - scales: Width multipliers, one anchor emitted per entry.
//
// Returns:
//   - One segment per scale, in the order the scales were given.
func GenerateBase(stride int, scales []float32) []segments.Segment {
	base := segments.Segment{X1: 0, X2: float32(stride) - 1}
	w := base.Width()
	ctr := base.Center()

	out := make([]segments.Segment, 0, len(scales))
	for _, s := range scales {
		ws := w * s
		out = append(out, segments.Segment{
			X1: ctr - 0.5*(ws-1),
			X2: ctr + 0.5*(ws-1),
		})
	}
	return out
}

// Tile shifts the base anchors across every grid position of a
// sequence.
//
// The grid has seqLen/stride positions (floor division); a trailing
// partial cell receives no anchors. Output ordering is position-major,
// scale-minor. Downstream consumers pair regression outputs with
// anchors index-for-index, so this ordering must not change.
//
// Arguments:
//   - base: The per-position anchor set from GenerateBase.
//   - seqLen: The sequence length to cover.
//   - stride: The distance between adjacent grid positions.
//
// Returns:
//   - (seqLen/stride) * len(base) segments.
func Tile(base []segments.Segment, seqLen, stride int) []segments.Segment {
	k := seqLen / stride
	out := make([]segments.Segment, 0, k*len(base))
	for pos := 0; pos < k; pos++ {
		shift := float32(pos * stride)
		for _, a := range base {
			out = append(out, a.Translate(shift))
		}
	}
	return out
}

// Generator memoizes tiled anchor grids per sequence length. A grid is
// a pure function of (seqLen, stride, scales), so cached grids can be
// shared across calls and goroutines.
type Generator struct {
	stride int
	scales []float32
	base   []segments.Segment

	mu    sync.Mutex
	cache map[int][]segments.Segment
}

// NewGenerator creates a Generator for a fixed stride and scale set.
//
// Arguments:
//   - stride: The grid step. Must be positive.
//   - scales: Width multipliers. Must be non-empty and positive.
//
// Returns:
//   - *Generator: The generator.
//   - error: An error if the stride or any scale is invalid.
func NewGenerator(stride int, scales []float32) (*Generator, error) {
	if stride <= 0 {
		return nil, errors.Errorf("anchor stride must be positive, got %d", stride)
	}
	if len(scales) == 0 {
		return nil, errors.New("anchor scales must not be empty")
	}
	for i, s := range scales {
		if s <= 0 {
			return nil, errors.Errorf("anchor scale[%d] must be positive, got %v", i, s)
		}
	}

	owned := append([]float32(nil), scales...)
	return &Generator{
		stride: stride,
		scales: owned,
		base:   GenerateBase(stride, owned),
		cache:  make(map[int][]segments.Segment),
	}, nil
}

// Stride returns the grid step the generator was built with.
func (g *Generator) Stride() int { return g.stride }

// Grid returns the dense anchor grid for a sequence length. The
// returned slice is shared with the cache; callers must not mutate it.
func (g *Generator) Grid(seqLen int) []segments.Segment {
	g.mu.Lock()
	defer g.mu.Unlock()

	if grid, ok := g.cache[seqLen]; ok {
		return grid
	}
	grid := Tile(g.base, seqLen, g.stride)
	g.cache[seqLen] = grid
	return grid
}
