package predictor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqvision/go-segdet/segments"
)

// TestUsePresetValues validates the two preset threshold bundles.
func TestUsePresetValues(t *testing.T) {
	visualize, err := UsePreset(PresetVisualize)
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), visualize.NMSThreshold, "visualize preset nms threshold")
	assert.Equal(t, float32(0.7), visualize.ScoreThreshold, "visualize preset score threshold")

	evaluate, err := UsePreset(PresetEvaluate)
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), evaluate.NMSThreshold, "evaluate preset nms threshold")
	assert.Equal(t, float32(0.05), evaluate.ScoreThreshold, "evaluate preset score threshold")
}

// TestUsePresetUnknown validates that unknown names fail fast instead
// of silently defaulting.
func TestUsePresetUnknown(t *testing.T) {
	_, err := UsePreset("invalid")
	require.Error(t, err, "unknown preset must be rejected")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration), "rejection should carry ErrInvalidConfiguration")
}

// TestConfigValidate validates threshold and normalization checks.
func TestConfigValidate(t *testing.T) {
	valid, err := UsePreset(PresetEvaluate)
	require.NoError(t, err)
	assert.NoError(t, valid.Validate(), "preset configs should validate")

	noNMS := valid
	noNMS.NMSThreshold = 0
	assert.ErrorIs(t, noNMS.Validate(), ErrInvalidConfiguration, "zero nms threshold should be rejected")

	negativeScore := valid
	negativeScore.ScoreThreshold = -0.1
	assert.ErrorIs(t, negativeScore.Validate(), ErrInvalidConfiguration, "negative score threshold should be rejected")

	badStd := valid
	badStd.LocNormalize = segments.Normalization{Std: [2]float32{0.1, 0}}
	assert.ErrorIs(t, badStd.Validate(), ErrInvalidConfiguration, "zero normalization std should be rejected")
}
