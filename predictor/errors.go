// Package predictor - error taxonomy for the detection pipeline.
package predictor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidConfiguration reports an unknown preset name, a
// non-positive threshold or a malformed normalization vector.
// Configuration errors surface at setup, before any per-group
// processing begins.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ShapeMismatchError reports collaborator outputs whose element counts
// disagree with each other. A call that produces one yields no partial
// output.
type ShapeMismatchError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s: want %d, got %d", e.Field, e.Want, e.Got)
}
