// Package postprocess - Postprocessing utilities for segment detectors.
package postprocess

import "github.com/seqvision/go-segdet/segments"

// Result represents a single detection result.
type Result struct {
	// The detected segment, in sequence coordinates.
	Segment segments.Segment
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
	// The independent sub-sequence the result belongs to. Results from
	// different groups are never suppressed against each other.
	Group int
}
