package postprocess

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqvision/go-segdet/segments"
)

// TestSuppressScenario validates the canonical three-candidate case:
// the two near-duplicates collapse onto the higher-scoring one, and the
// distant segment survives first.
func TestSuppressScenario(t *testing.T) {
	segs := []segments.Segment{
		{X1: 0, X2: 10},
		{X1: 1, X2: 11},
		{X1: 50, X2: 60},
	}
	scores := []float32{0.9, 0.8, 0.95}

	kept := Suppress(segs, scores, 0.5)
	assert.Equal(t, []int{2, 0}, kept, "candidate 1 should be suppressed by candidate 0")
}

// TestSuppressEdgeCases validates the empty and single-candidate inputs.
func TestSuppressEdgeCases(t *testing.T) {
	assert.Nil(t, Suppress(nil, nil, 0.5), "no candidates should yield nil")

	kept := Suppress([]segments.Segment{{X1: 3, X2: 9}}, []float32{0.1}, 0.5)
	assert.Equal(t, []int{0}, kept, "a single candidate is always kept")
}

// TestSuppressTies validates deterministic tie-breaking: identical
// segments with equal scores keep only the first in input order.
func TestSuppressTies(t *testing.T) {
	seg := segments.Segment{X1: 10, X2: 20}
	kept := Suppress([]segments.Segment{seg, seg, seg}, []float32{0.5, 0.5, 0.5}, 0.9)
	assert.Equal(t, []int{0}, kept, "equal-score duplicates should collapse onto the first")
}

// TestSuppressPairwiseInvariant validates that no two kept segments
// overlap beyond the threshold, over randomized candidate sets.
func TestSuppressPairwiseInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		segs, scores := randomCandidates(rng, 60)

		for _, threshold := range []float32{0.3, 0.5, 0.7} {
			kept := Suppress(segs, scores, threshold)
			for i := 0; i < len(kept); i++ {
				for j := i + 1; j < len(kept); j++ {
					iou := segments.CalculateIoU(segs[kept[i]], segs[kept[j]])
					assert.LessOrEqual(t, iou, threshold,
						"kept segments %d and %d must not exceed the threshold", kept[i], kept[j])
				}
			}
		}
	}
}

// TestSuppressThresholdMonotonic validates that lowering the threshold
// never grows the kept set.
func TestSuppressThresholdMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	segs, scores := randomCandidates(rng, 80)

	prev := len(segs) + 1
	for _, threshold := range []float32{0.9, 0.7, 0.5, 0.3, 0.1, 0.01} {
		n := len(Suppress(segs, scores, threshold))
		assert.LessOrEqual(t, n, prev, "kept count must not grow as the threshold shrinks (thr=%v)", threshold)
		prev = n
	}
}

// TestSuppressIdempotence validates that suppressing an already
// suppressed set changes nothing.
func TestSuppressIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	segs, scores := randomCandidates(rng, 50)

	kept := Suppress(segs, scores, 0.4)
	keptSegs := make([]segments.Segment, len(kept))
	keptScores := make([]float32, len(kept))
	for i, k := range kept {
		keptSegs[i] = segs[k]
		keptScores[i] = scores[k]
	}

	again := Suppress(keptSegs, keptScores, 0.4)
	require.Len(t, again, len(kept), "re-suppression must keep everything")
	for i, k := range again {
		assert.Equal(t, i, k, "re-suppression must preserve the order")
	}
}

// TestSuppressDeterminism validates bit-identical output across calls.
func TestSuppressDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	segs, scores := randomCandidates(rng, 40)

	first := Suppress(segs, scores, 0.5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Suppress(segs, scores, 0.5), "suppress must be deterministic")
	}
}

// TestApplyNMS validates the Result-level wrapper, including unsorted
// input and descending-score output order.
func TestApplyNMS(t *testing.T) {
	results := []Result{
		{Segment: segments.Segment{X1: 0, X2: 10}, Score: 0.9},
		{Segment: segments.Segment{X1: 1, X2: 11}, Score: 0.8},
		{Segment: segments.Segment{X1: 50, X2: 60}, Score: 0.95},
	}

	filtered := ApplyNMS(results, &NMSConfig{IoUThreshold: 0.5})
	require.Len(t, filtered, 2)
	assert.Equal(t, float32(0.95), filtered[0].Score, "highest score should come first")
	assert.Equal(t, float32(0.9), filtered[1].Score, "the near-duplicate should be dropped")

	assert.Nil(t, ApplyNMS(nil, &NMSConfig{IoUThreshold: 0.5}), "no detections should yield nil")
}

// TestApplyNMSClassAware validates that class partitions never suppress
// each other.
func TestApplyNMSClassAware(t *testing.T) {
	seg := segments.Segment{X1: 0, X2: 10}
	results := []Result{
		{Segment: seg, Score: 0.9, Class: 0},
		{Segment: seg, Score: 0.8, Class: 1},
	}

	merged := ApplyNMS(results, &NMSConfig{IoUThreshold: 0.5})
	assert.Len(t, merged, 1, "class-blind suppression should merge identical segments")

	perClass := ApplyNMS(results, &NMSConfig{IoUThreshold: 0.5, ClassAware: true})
	assert.Len(t, perClass, 2, "class-aware suppression should keep both classes")
}

// TestApplyNMSGroupAware validates that group partitions never suppress
// each other.
func TestApplyNMSGroupAware(t *testing.T) {
	seg := segments.Segment{X1: 20, X2: 35}
	results := []Result{
		{Segment: seg, Score: 0.9, Group: 0},
		{Segment: seg, Score: 0.7, Group: 1},
	}

	merged := ApplyNMS(results, &NMSConfig{IoUThreshold: 0.5})
	assert.Len(t, merged, 1, "group-blind suppression should merge identical segments")

	perGroup := ApplyNMS(results, &NMSConfig{IoUThreshold: 0.5, GroupAware: true})
	assert.Len(t, perGroup, 2, "group-aware suppression should keep both groups")
}

func randomCandidates(rng *rand.Rand, n int) ([]segments.Segment, []float32) {
	segs := make([]segments.Segment, n)
	scores := make([]float32, n)
	for i := range segs {
		x1 := rng.Float32() * 400
		segs[i] = segments.Segment{X1: x1, X2: x1 + rng.Float32()*80 + 1}
		scores[i] = rng.Float32()
	}
	return segs, scores
}
