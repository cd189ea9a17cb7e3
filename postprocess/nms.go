// Package postprocess - provides Non-Maximum Suppression for segment
// detection results.
package postprocess

import (
	"sort"

	"github.com/seqvision/go-segdet/segments"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap threshold above which segments are suppressed.
	ClassAware   bool    // If true, suppress only within the same class.
	GroupAware   bool    // If true, suppress only within the same group.
}

// Suppress performs greedy Non-Maximum Suppression over parallel
// slices of segments and confidence scores.
//
// Candidates are visited in descending score order, ties broken by
// input position, so the result is fully deterministic. Each kept
// candidate removes every remaining candidate whose IoU with it
// exceeds the threshold. Worst case O(n²) in the candidate count,
// which stays small after score thresholding.
//
// Arguments:
//   - segs: Candidate segments.
//   - scores: Per-candidate confidence, index-aligned with segs.
//   - iouThreshold: Overlap above which a candidate is suppressed.
//
// Returns:
//   - Indices into segs of the kept candidates, in selection order.
//     If no candidates are provided, returns nil.
func Suppress(segs []segments.Segment, scores []float32, iouThreshold float32) []int {
	n := len(segs)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	kept := make([]int, 0, n)
	used := make([]bool, n)
	for pos, i := range order {
		if used[i] {
			continue
		}

		kept = append(kept, i)
		used[i] = true

		for _, j := range order[pos+1:] {
			if used[j] {
				continue
			}
			if segments.CalculateIoU(segs[i], segs[j]) > iouThreshold {
				used[j] = true
			}
		}
	}

	return kept
}

// ApplyNMS filters overlapping detections using Non-Maximum
// Suppression over fully-built Result values.
//
// Detections need not be pre-sorted. When ClassAware or GroupAware is
// set, only detections sharing the same class or group can suppress
// one another; partitions never interact.
//
// Arguments:
//   - results: Detections to filter.
//   - config: NMS configuration.
//
// Returns:
//   - Filtered detections in descending score order. If no detections
//     are provided, returns nil.
func ApplyNMS(results []Result, config *NMSConfig) []Result {
	n := len(results)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return results[order[i]].Score > results[order[j]].Score
	})

	filtered := make([]Result, 0, n)
	used := make([]bool, n)
	for pos, i := range order {
		if used[i] {
			continue
		}

		anchor := results[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for _, j := range order[pos+1:] {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Class != results[j].Class {
				continue
			}
			if config.GroupAware && anchor.Group != results[j].Group {
				continue
			}
			if segments.CalculateIoU(anchor.Segment, results[j].Segment) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
