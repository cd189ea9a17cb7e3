// Package onnx - exported proposal network and classification head.
package onnx

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/seqvision/go-segdet/anchors"
	"github.com/seqvision/go-segdet/predictor"
	"github.com/seqvision/go-segdet/segments"
)

// SPNConfig describes an exported proposal network model.
//
// The model consumes features of shape (1, Channels, SeqLen) and emits
// four outputs, in order:
//
//	locs      (1, A, 2)    per-anchor regression outputs
//	scores    (1, A)       per-anchor objectness
//	proposals (1, MaxP, 2) proposed segments, padded past the count
//	count     (1)          number of valid proposal rows
//
// A is the anchor count (SeqLen/Stride)*len(Scales); the model's anchor
// layout must match the grid produced by the anchors package or the
// downstream decode is silently wrong.
type SPNConfig struct {
	ModelPath    string    `json:"model_path" yaml:"model_path"`
	Channels     int       `json:"channels" yaml:"channels"`
	SeqLen       int       `json:"seq_len" yaml:"seq_len"`
	Stride       int       `json:"stride" yaml:"stride"`
	Scales       []float32 `json:"scales" yaml:"scales"`
	MaxProposals int       `json:"max_proposals" yaml:"max_proposals"`
}

// SPNetwork adapts an exported proposal model to
// predictor.ProposalNetwork.
type SPNetwork struct {
	session *Session
	gen     *anchors.Generator
	cfg     SPNConfig
}

// NewSPNetwork loads the proposal model described by cfg.
func NewSPNetwork(cfg SPNConfig) (*SPNetwork, error) {
	if cfg.Channels <= 0 || cfg.SeqLen <= 0 || cfg.MaxProposals <= 0 {
		return nil, errors.Errorf(
			"channels, seq_len and max_proposals must be positive, got %d/%d/%d",
			cfg.Channels, cfg.SeqLen, cfg.MaxProposals)
	}
	gen, err := anchors.NewGenerator(cfg.Stride, cfg.Scales)
	if err != nil {
		return nil, err
	}

	a := int64((cfg.SeqLen / cfg.Stride) * len(cfg.Scales))
	session, err := NewSession(cfg.ModelPath,
		[]TensorSpec{
			{Name: "features", Shape: []int64{1, int64(cfg.Channels), int64(cfg.SeqLen)}},
		},
		[]TensorSpec{
			{Name: "locs", Shape: []int64{1, a, 2}},
			{Name: "scores", Shape: []int64{1, a}},
			{Name: "proposals", Shape: []int64{1, int64(cfg.MaxProposals), 2}},
			{Name: "count", Shape: []int64{1}},
		})
	if err != nil {
		return nil, err
	}

	return &SPNetwork{session: session, gen: gen, cfg: cfg}, nil
}

// Forward runs the proposal model over one element's features.
//
// Every proposal is tagged with groupIDs[0]: an exported model session
// serves exactly one sub-sequence per run.
func (n *SPNetwork) Forward(features tensor.Tensor, groupIDs []int64, seqLen int) (*predictor.Proposals, error) {
	if seqLen != n.cfg.SeqLen {
		return nil, errors.Errorf("session is fixed to seq_len %d, got %d", n.cfg.SeqLen, seqLen)
	}
	if len(groupIDs) == 0 {
		return nil, errors.New("at least one group id is required")
	}
	raw, ok := features.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("features must be float32, got %T", features.Data())
	}

	out, err := n.session.Run(raw)
	if err != nil {
		return nil, err
	}
	locsData, scores, propData, countData := out[0], out[1], out[2], out[3]

	grid := n.gen.Grid(seqLen)
	if len(locsData) != len(grid)*2 {
		return nil, errors.Errorf("model emitted %d loc values for %d anchors", len(locsData), len(grid))
	}
	locs := make([]segments.Offset, len(grid))
	for i := range locs {
		locs[i] = segments.Offset{DX: locsData[i*2], DW: locsData[i*2+1]}
	}

	count := int(countData[0])
	if count < 0 || count > n.cfg.MaxProposals {
		return nil, errors.Errorf("proposal count %d outside [0, %d]", count, n.cfg.MaxProposals)
	}
	props := make([]segments.Segment, count)
	groups := make([]int, count)
	for i := 0; i < count; i++ {
		props[i] = segments.Segment{X1: propData[i*2], X2: propData[i*2+1]}
		groups[i] = int(groupIDs[0])
	}

	return &predictor.Proposals{
		Locs:     locs,
		Scores:   scores,
		Segments: props,
		Groups:   groups,
		Anchors:  grid,
	}, nil
}

// Close releases the underlying session.
func (n *SPNetwork) Close() error { return n.session.Close() }

// HeadConfig describes an exported classification head model.
//
// The model consumes features (1, Channels, SeqLen) plus proposals
// (1, MaxP, 2) and emits, in order:
//
//	cls_locs   (1, MaxP, NumClasses*2) per-class regression outputs
//	cls_scores (1, MaxP, NumClasses)   per-class raw scores
//
// Rows past the true proposal count are padding and are trimmed before
// the result reaches the predictor. Class 0 is the background.
type HeadConfig struct {
	ModelPath    string `json:"model_path" yaml:"model_path"`
	Channels     int    `json:"channels" yaml:"channels"`
	SeqLen       int    `json:"seq_len" yaml:"seq_len"`
	MaxProposals int    `json:"max_proposals" yaml:"max_proposals"`
	NumClasses   int    `json:"num_classes" yaml:"num_classes"`
}

// ClsHead adapts an exported head model to predictor.Head.
type ClsHead struct {
	session *Session
	cfg     HeadConfig
}

// NewClsHead loads the head model described by cfg.
func NewClsHead(cfg HeadConfig) (*ClsHead, error) {
	if cfg.NumClasses < 2 {
		return nil, errors.Errorf("head needs background plus at least one class, got %d", cfg.NumClasses)
	}
	if cfg.Channels <= 0 || cfg.SeqLen <= 0 || cfg.MaxProposals <= 0 {
		return nil, errors.Errorf(
			"channels, seq_len and max_proposals must be positive, got %d/%d/%d",
			cfg.Channels, cfg.SeqLen, cfg.MaxProposals)
	}

	session, err := NewSession(cfg.ModelPath,
		[]TensorSpec{
			{Name: "features", Shape: []int64{1, int64(cfg.Channels), int64(cfg.SeqLen)}},
			{Name: "proposals", Shape: []int64{1, int64(cfg.MaxProposals), 2}},
		},
		[]TensorSpec{
			{Name: "cls_locs", Shape: []int64{1, int64(cfg.MaxProposals), int64(cfg.NumClasses) * 2}},
			{Name: "cls_scores", Shape: []int64{1, int64(cfg.MaxProposals), int64(cfg.NumClasses)}},
		})
	if err != nil {
		return nil, err
	}

	return &ClsHead{session: session, cfg: cfg}, nil
}

// NumClasses reports the head's class count, background included.
func (h *ClsHead) NumClasses() int { return h.cfg.NumClasses }

// Forward scores the proposals against one element's features.
func (h *ClsHead) Forward(features tensor.Tensor, proposals []segments.Segment, groups []int) ([]float32, []float32, error) {
	if len(proposals) > h.cfg.MaxProposals {
		return nil, nil, errors.Errorf("session is fixed to %d proposals, got %d", h.cfg.MaxProposals, len(proposals))
	}
	raw, ok := features.Data().([]float32)
	if !ok {
		return nil, nil, errors.Errorf("features must be float32, got %T", features.Data())
	}

	padded := make([]float32, h.cfg.MaxProposals*2)
	for i, p := range proposals {
		padded[i*2] = p.X1
		padded[i*2+1] = p.X2
	}

	out, err := h.session.Run(raw, padded)
	if err != nil {
		return nil, nil, err
	}

	r := len(proposals)
	n := h.cfg.NumClasses
	return out[0][:r*n*2], out[1][:r*n], nil
}

// Close releases the underlying session.
func (h *ClsHead) Close() error { return h.session.Close() }
