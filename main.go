package main

import (
	"context"
	"flag"
	"log"
	"math"

	"gorgonia.org/tensor"

	"github.com/seqvision/go-segdet/anchors"
	"github.com/seqvision/go-segdet/predictor"
	"github.com/seqvision/go-segdet/segments"
)

// Demo driver: runs the detection pipeline over a synthetic feature
// sequence with threshold-based stand-ins for the proposal network and
// classification head. Useful for eyeballing the decode/suppress
// behavior without an exported model.

const (
	// DefaultStride is the anchor grid step.
	DefaultStride = 16
	// DefaultChannels is the synthetic feature channel count.
	DefaultChannels = 4
	// DefaultClasses is the head class count, background included.
	DefaultClasses = 3
)

// energySPN proposes every anchor whose mean absolute feature value
// exceeds a fixed activation level.
type energySPN struct {
	gen   *anchors.Generator
	level float32
}

func (s *energySPN) Forward(features tensor.Tensor, groupIDs []int64, seqLen int) (*predictor.Proposals, error) {
	raw := features.Data().([]float32)
	channels := features.Shape()[0]
	grid := s.gen.Grid(seqLen)

	props := &predictor.Proposals{
		Locs:    make([]segments.Offset, len(grid)),
		Scores:  make([]float32, len(grid)),
		Anchors: grid,
	}
	for i, a := range grid {
		e := meanEnergy(raw, channels, seqLen, a)
		props.Scores[i] = e
		if e > s.level {
			props.Segments = append(props.Segments, a)
			props.Groups = append(props.Groups, int(groupIDs[0]))
		}
	}
	return props, nil
}

// energyHead scores each proposal's classes from its mean energy and
// nudges the segment toward the activation it covers.
type energyHead struct {
	numClasses int
}

func (h *energyHead) NumClasses() int { return h.numClasses }

func (h *energyHead) Forward(features tensor.Tensor, proposals []segments.Segment, groups []int) ([]float32, []float32, error) {
	raw := features.Data().([]float32)
	shape := features.Shape()
	channels, seqLen := shape[0], shape[1]

	locs := make([]float32, len(proposals)*h.numClasses*2)
	scores := make([]float32, len(proposals)*h.numClasses)
	for i, p := range proposals {
		e := meanEnergy(raw, channels, seqLen, p)
		for cls := 0; cls < h.numClasses; cls++ {
			if cls == 0 {
				scores[i*h.numClasses] = 1 - e
				continue
			}
			scores[i*h.numClasses+cls] = e / float32(cls)
		}
	}
	return locs, scores, nil
}

func meanEnergy(raw []float32, channels, seqLen int, s segments.Segment) float32 {
	lo, hi := int(s.X1), int(s.X2)
	if lo < 0 {
		lo = 0
	}
	if hi >= seqLen {
		hi = seqLen - 1
	}
	if hi < lo {
		return 0
	}

	var sum float32
	for c := 0; c < channels; c++ {
		for x := lo; x <= hi; x++ {
			v := raw[c*seqLen+x]
			if v < 0 {
				v = -v
			}
			sum += v
		}
	}
	return sum / float32(channels*(hi-lo+1))
}

// syntheticFeatures builds a (1, channels, seqLen) batch with two
// activation bursts, so the demo has something to detect.
func syntheticFeatures(channels, seqLen int) *tensor.Dense {
	data := make([]float32, channels*seqLen)
	for c := 0; c < channels; c++ {
		for x := 0; x < seqLen; x++ {
			switch {
			case x >= seqLen/8 && x < seqLen/4:
				data[c*seqLen+x] = float32(math.Sin(float64(x) / 3.0))
			case x >= seqLen/2 && x < seqLen/2+seqLen/8:
				data[c*seqLen+x] = 0.8
			}
		}
	}
	return tensor.New(tensor.WithShape(1, channels, seqLen), tensor.WithBacking(data))
}

func main() {
	var (
		presetName = flag.String("preset", string(predictor.PresetVisualize), "threshold preset: visualize or evaluate")
		seqLen     = flag.Int("seq-len", 512, "synthetic sequence length")
		stride     = flag.Int("stride", DefaultStride, "anchor grid stride")
	)
	flag.Parse()

	cfg, err := predictor.UsePreset(predictor.Preset(*presetName))
	if err != nil {
		log.Fatalf("Failed to resolve preset: %v", err)
	}

	gen, err := anchors.NewGenerator(*stride, []float32{1, 2, 4})
	if err != nil {
		log.Fatalf("Failed to build anchor generator: %v", err)
	}

	pred, err := predictor.New(
		&energySPN{gen: gen, level: 0.2},
		&energyHead{numClasses: DefaultClasses},
		cfg,
	)
	if err != nil {
		log.Fatalf("Failed to build predictor: %v", err)
	}

	features := syntheticFeatures(DefaultChannels, *seqLen)
	segs, labels, scores, err := pred.Predict(context.Background(), features, [][2]int64{{0, 0}})
	if err != nil {
		log.Fatalf("Prediction failed: %v", err)
	}

	log.Printf("Detections for preset %q (nms=%.2f score=%.2f):", *presetName, cfg.NMSThreshold, cfg.ScoreThreshold)
	for i := range segs[0] {
		log.Printf("  %s  label=%d  score=%.3f", segs[0][i], labels[0][i], scores[0][i])
	}
	if len(segs[0]) == 0 {
		log.Printf("  (none above threshold)")
	}
}
