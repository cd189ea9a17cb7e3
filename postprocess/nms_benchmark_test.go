package postprocess

import (
	"math/rand"
	"testing"

	"github.com/seqvision/go-segdet/segments"
)

// Benchmark cases covering IoU and suppression under candidate loads
// typical of post-threshold detection sets.

// BenchmarkCalculateIoU_NonOverlapping exercises the early-exit path
// for disjoint segments.
func BenchmarkCalculateIoU_NonOverlapping(b *testing.B) {
	s1 := segments.Segment{X1: 0, X2: 100}
	s2 := segments.Segment{X1: 200, X2: 300}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = segments.CalculateIoU(s1, s2)
	}
}

// BenchmarkCalculateIoU_PartialOverlap exercises the full calculation
// path with a typical 0.3-0.7 overlap.
func BenchmarkCalculateIoU_PartialOverlap(b *testing.B) {
	s1 := segments.Segment{X1: 0, X2: 100}
	s2 := segments.Segment{X1: 40, X2: 140}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = segments.CalculateIoU(s1, s2)
	}
}

// BenchmarkSuppress measures greedy suppression across candidate counts.
func BenchmarkSuppress(b *testing.B) {
	for _, n := range []int{16, 128, 1024} {
		rng := rand.New(rand.NewSource(23))
		segs := make([]segments.Segment, n)
		scores := make([]float32, n)
		for i := range segs {
			x1 := rng.Float32() * 2000
			segs[i] = segments.Segment{X1: x1, X2: x1 + rng.Float32()*60 + 1}
			scores[i] = rng.Float32()
		}

		b.Run(benchName(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Suppress(segs, scores, 0.5)
			}
		})
	}
}

func benchName(n int) string {
	switch n {
	case 16:
		return "small"
	case 128:
		return "medium"
	default:
		return "large"
	}
}
