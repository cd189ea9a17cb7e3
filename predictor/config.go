// Package predictor - prediction configuration and presets.
package predictor

import (
	"github.com/pkg/errors"

	"github.com/seqvision/go-segdet/segments"
)

// Preset names a bundled pair of suppression and score thresholds.
type Preset string

const (
	// PresetVisualize keeps few, high-confidence detections for display.
	PresetVisualize Preset = "visualize"
	// PresetEvaluate keeps permissive, recall-oriented detections for
	// metric computation.
	PresetEvaluate Preset = "evaluate"
)

// Config carries the thresholds and offset normalization for a
// prediction call. It is a plain value threaded through each call, so
// concurrent predictions with different presets cannot interfere.
type Config struct {
	// NMSThreshold is the IoU above which overlapping detections of the
	// same class are suppressed.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`
	// ScoreThreshold discards detections at or below this confidence.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// LocNormalize de-normalizes the head's regression outputs before
	// decoding, broadcast across classes.
	LocNormalize segments.Normalization `json:"loc_normalize" yaml:"loc_normalize"`
}

// UsePreset returns the Config for a named preset.
//
// Arguments:
//   - name: One of PresetVisualize or PresetEvaluate.
//
// Returns:
//   - Config: The threshold bundle for the preset.
//   - error: ErrInvalidConfiguration for any other name.
func UsePreset(name Preset) (Config, error) {
	switch name {
	case PresetVisualize:
		return Config{
			NMSThreshold:   0.3,
			ScoreThreshold: 0.7,
			LocNormalize:   segments.DefaultNormalization(),
		}, nil
	case PresetEvaluate:
		return Config{
			NMSThreshold:   0.3,
			ScoreThreshold: 0.05,
			LocNormalize:   segments.DefaultNormalization(),
		}, nil
	default:
		return Config{}, errors.Wrapf(ErrInvalidConfiguration,
			"preset must be %q or %q, got %q", PresetVisualize, PresetEvaluate, name)
	}
}

// Validate checks the configuration before any prediction runs.
//
// Returns:
//   - error: ErrInvalidConfiguration (wrapped) if a threshold is
//     non-positive or the normalization vector is malformed.
func (c Config) Validate() error {
	if c.NMSThreshold <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration,
			"nms threshold must be positive, got %v", c.NMSThreshold)
	}
	if c.ScoreThreshold <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration,
			"score threshold must be positive, got %v", c.ScoreThreshold)
	}
	if err := c.LocNormalize.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidConfiguration, "loc normalize: %v", err)
	}
	return nil
}
