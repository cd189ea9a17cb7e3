// Package segments - regression offset codec for temporal detection.
package segments

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Offset is the regression parameterization of a segment against a
// reference interval: a center shift expressed in reference widths and
// a log-space width scale.
type Offset struct {
	DX float32
	DW float32
}

// Normalization holds the per-parameter mean and standard deviation
// applied to raw regression outputs before decoding. The raw offset is
// recovered as offset*std + mean, broadcast across classes.
type Normalization struct {
	Mean [2]float32 `json:"mean" yaml:"mean"`
	Std  [2]float32 `json:"std" yaml:"std"`
}

// DefaultNormalization returns the scale the localization head is
// conventionally trained with.
func DefaultNormalization() Normalization {
	return Normalization{
		Mean: [2]float32{0.0, 0.0},
		Std:  [2]float32{0.1, 0.2},
	}
}

// Validate checks that the standard deviations are usable.
//
// Returns:
//   - error: An error if any std component is zero or negative.
func (n Normalization) Validate() error {
	for i, std := range n.Std {
		if std <= 0 {
			return errors.Errorf("normalization std[%d] must be positive, got %v", i, std)
		}
	}
	return nil
}

// Denormalize maps a normalized regression output back to a raw offset.
func (n Normalization) Denormalize(off Offset) Offset {
	return Offset{
		DX: off.DX*n.Std[0] + n.Mean[0],
		DW: off.DW*n.Std[1] + n.Mean[1],
	}
}

// Decode maps a raw regression offset against a reference segment into
// an absolute segment.
//
// The center moves by DX reference-widths; the width scales by
// exp(DW). Decode is the exact inverse of Encode, and callers are
// expected to clip the result to the valid sequence range before any
// suppression runs.
//
// Arguments:
//   - ref: The reference segment (anchor or proposal).
//   - off: The raw (de-normalized) regression offset.
//
// Returns:
//   - Segment: The decoded absolute segment.
func Decode(ref Segment, off Offset) Segment {
	w := ref.Width()
	ctr := off.DX*w + ref.Center()
	dw := math32.Exp(off.DW) * w
	return Segment{
		X1: ctr - 0.5*(dw-1),
		X2: ctr + 0.5*(dw-1),
	}
}

// Encode produces the offset that Decode maps back onto target when
// applied to ref. Used by training-side callers and for verifying the
// decode transform.
func Encode(ref, target Segment) Offset {
	w := ref.Width()
	return Offset{
		DX: (target.Center() - ref.Center()) / w,
		DW: math32.Log(target.Width() / w),
	}
}
