// Package predictor - two-stage temporal segment detection.
//
// The predictor composes an externally supplied proposal network and
// classification head with offset decoding, score thresholding and
// per-class Non-Maximum Suppression, producing final (segment, label,
// score) triples per batch element.
package predictor

import (
	"context"
	"sort"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/seqvision/go-segdet/postprocess"
	"github.com/seqvision/go-segdet/segments"
)

// Proposals is the proposal stage output for one batch element. All
// slices keyed by anchor are index-aligned with Anchors; all slices
// keyed by proposal are index-aligned with Segments.
type Proposals struct {
	// Locs holds the raw per-anchor regression outputs.
	Locs []segments.Offset
	// Scores holds the per-anchor objectness scores.
	Scores []float32
	// Segments holds the proposed intervals, in sequence coordinates.
	Segments []segments.Segment
	// Groups tags every proposal with the independent sub-sequence it
	// came from. Suppression never crosses group boundaries.
	Groups []int
	// Anchors is the dense grid the proposals were regressed from.
	Anchors []segments.Segment
}

// ProposalNetwork produces candidate segments for one batch element.
// The regression arithmetic lives behind this interface; the predictor
// only consumes its output tensors.
type ProposalNetwork interface {
	Forward(features tensor.Tensor, groupIDs []int64, seqLen int) (*Proposals, error)
}

// Head refines and scores proposals per class. ClsLocs is flattened
// R x nClass x 2 (center shift, log-width scale per class); ClsScores
// is flattened R x nClass with the background class at index 0.
type Head interface {
	NumClasses() int
	Forward(features tensor.Tensor, proposals []segments.Segment, groups []int) (clsLocs, clsScores []float32, err error)
}

// RawOutput carries the pre-suppression tensors for one batch element,
// for callers that need intermediate results.
type RawOutput struct {
	ClsLocs   []float32
	ClsScores []float32
	Proposals []segments.Segment
	Groups    []int
}

// Predictor runs the full detection pipeline over batches of
// pre-extracted 1-D features.
type Predictor struct {
	spn  ProposalNetwork
	head Head
	cfg  Config
}

// New creates a Predictor.
//
// Arguments:
//   - spn: The external proposal network.
//   - head: The external classification head.
//   - cfg: Thresholds and normalization for every Predict call.
//
// Returns:
//   - *Predictor: The predictor.
//   - error: ErrInvalidConfiguration if cfg is invalid or a
//     collaborator is missing.
func New(spn ProposalNetwork, head Head, cfg Config) (*Predictor, error) {
	if spn == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "proposal network is required")
	}
	if head == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "classification head is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if head.NumClasses() < 2 {
		return nil, errors.Wrapf(ErrInvalidConfiguration,
			"head must predict background plus at least one class, got %d", head.NumClasses())
	}
	return &Predictor{spn: spn, head: head, cfg: cfg}, nil
}

// Config returns the configuration the predictor was built with.
func (p *Predictor) Config() Config { return p.cfg }

// NumClasses reports the head's class count, background included.
func (p *Predictor) NumClasses() int { return p.head.NumClasses() }

// Forward runs the proposal network and head for one batch element and
// returns their raw, shape-checked outputs without any suppression.
//
// Arguments:
//   - features: One element's features, shape (C, W).
//   - groupIDs: Group ids for the element's sub-sequences.
//   - seqLen: The sequence length W.
//
// Returns:
//   - *RawOutput: Index-aligned class offsets, class scores, proposals
//     and group tags.
//   - error: A *ShapeMismatchError if collaborator outputs disagree, or
//     the collaborator's own error, wrapped.
func (p *Predictor) Forward(features tensor.Tensor, groupIDs []int64, seqLen int) (*RawOutput, error) {
	props, err := p.spn.Forward(features, groupIDs, seqLen)
	if err != nil {
		return nil, errors.Wrap(err, "proposal network")
	}
	if len(props.Groups) != len(props.Segments) {
		return nil, &ShapeMismatchError{Field: "proposal groups", Want: len(props.Segments), Got: len(props.Groups)}
	}
	if len(props.Locs) != len(props.Anchors) {
		return nil, &ShapeMismatchError{Field: "anchor locs", Want: len(props.Anchors), Got: len(props.Locs)}
	}
	if len(props.Scores) != len(props.Anchors) {
		return nil, &ShapeMismatchError{Field: "anchor scores", Want: len(props.Anchors), Got: len(props.Scores)}
	}

	clsLocs, clsScores, err := p.head.Forward(features, props.Segments, props.Groups)
	if err != nil {
		return nil, errors.Wrap(err, "classification head")
	}

	r := len(props.Segments)
	n := p.head.NumClasses()
	if len(clsLocs) != r*n*2 {
		return nil, &ShapeMismatchError{Field: "class locs", Want: r * n * 2, Got: len(clsLocs)}
	}
	if len(clsScores) != r*n {
		return nil, &ShapeMismatchError{Field: "class scores", Want: r * n, Got: len(clsScores)}
	}

	return &RawOutput{
		ClsLocs:   clsLocs,
		ClsScores: clsScores,
		Proposals: props.Segments,
		Groups:    props.Groups,
	}, nil
}

// Predict runs detection over a batch of pre-extracted features.
//
// features has shape (B, C, W); segInfo has one row per batch element
// with the element's group id in column 0. Batch elements are fully
// independent: each gets its own proposal, decode and suppression
// pass, and the context is only consulted between elements so a
// cancelled call never returns a half-suppressed result.
//
// Arguments:
//   - ctx: Context checked between batch elements.
//   - features: Feature batch, shape (B, C, W).
//   - segInfo: Per-element group info, shape (B, 2).
//
// Returns:
//   - One slice of segments, one of labels and one of scores per batch
//     element. Labels exclude the background class, so a label l maps
//     to head class l+1. A batch element with no detections yields
//     empty slices, not an error.
//   - error: A *ShapeMismatchError on malformed inputs or collaborator
//     outputs; the context error on cancellation. No partial output in
//     either case.
func (p *Predictor) Predict(ctx context.Context, features *tensor.Dense, segInfo [][2]int64) ([][]segments.Segment, [][]int, [][]float32, error) {
	shape := features.Shape()
	if len(shape) != 3 {
		return nil, nil, nil, &ShapeMismatchError{Field: "feature rank", Want: 3, Got: len(shape)}
	}
	b, w := shape[0], shape[2]
	if len(segInfo) != b {
		return nil, nil, nil, &ShapeMismatchError{Field: "segment info rows", Want: b, Got: len(segInfo)}
	}

	segsOut := make([][]segments.Segment, 0, b)
	labelsOut := make([][]int, 0, b)
	scoresOut := make([][]float32, 0, b)

	for i := 0; i < b; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}

		element, err := features.Slice(tensor.S(i))
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "slicing batch element %d", i)
		}

		// Materialize so collaborators see a contiguous (C, W) tensor
		// rather than a view over the whole batch backing.
		raw, err := p.Forward(element.Materialize(), []int64{segInfo[i][0]}, w)
		if err != nil {
			return nil, nil, nil, err
		}

		segs, labels, scores := p.suppress(raw, float32(w))
		segsOut = append(segsOut, segs)
		labelsOut = append(labelsOut, labels)
		scoresOut = append(scoresOut, scores)
	}

	return segsOut, labelsOut, scoresOut, nil
}

// suppress decodes the per-class offsets, thresholds the softmaxed
// scores and runs NMS class by class. Foreground classes run
// concurrently; results merge in ascending class order so the output
// ordering is reproducible.
func (p *Predictor) suppress(raw *RawOutput, seqLen float32) ([]segments.Segment, []int, []float32) {
	n := p.head.NumClasses()
	probs := softmax(raw.ClsScores, n)

	perClass := make([][]postprocess.Result, n)
	var wg sync.WaitGroup
	for cls := 1; cls < n; cls++ {
		wg.Add(1)
		go func(cls int) {
			defer wg.Done()
			perClass[cls] = p.detectClass(raw, probs, cls, seqLen)
		}(cls)
	}
	wg.Wait()

	segs := make([]segments.Segment, 0)
	labels := make([]int, 0)
	scores := make([]float32, 0)
	for cls := 1; cls < n; cls++ {
		for _, det := range perClass[cls] {
			segs = append(segs, det.Segment)
			labels = append(labels, det.Class)
			scores = append(scores, det.Score)
		}
	}
	return segs, labels, scores
}

// detectClass thresholds, decodes and suppresses one foreground class.
// Candidates are partitioned by group first; suppression runs within
// each group independently, groups visited in ascending id order.
func (p *Predictor) detectClass(raw *RawOutput, probs []float32, cls int, seqLen float32) []postprocess.Result {
	n := p.head.NumClasses()

	byGroup := make(map[int][]postprocess.Result)
	for i, prop := range raw.Proposals {
		score := probs[i*n+cls]
		if score <= p.cfg.ScoreThreshold {
			continue
		}

		off := p.cfg.LocNormalize.Denormalize(segments.Offset{
			DX: raw.ClsLocs[(i*n+cls)*2],
			DW: raw.ClsLocs[(i*n+cls)*2+1],
		})
		group := raw.Groups[i]
		byGroup[group] = append(byGroup[group], postprocess.Result{
			Segment: segments.Decode(prop, off).Clip(0, seqLen),
			Score:   score,
			// Labels exclude the background class.
			Class: cls - 1,
			Group: group,
		})
	}

	groups := make([]int, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	out := make([]postprocess.Result, 0)
	for _, g := range groups {
		candidates := byGroup[g]
		segs := make([]segments.Segment, len(candidates))
		scores := make([]float32, len(candidates))
		for i, c := range candidates {
			segs[i] = c.Segment
			scores[i] = c.Score
		}
		for _, keep := range postprocess.Suppress(segs, scores, p.cfg.NMSThreshold) {
			out = append(out, candidates[keep])
		}
	}
	return out
}

// softmax converts raw head scores into per-class probabilities, one
// row of n scores per proposal. Max-subtracted for numeric stability.
func softmax(scores []float32, n int) []float32 {
	out := make([]float32, len(scores))
	for row := 0; row+n <= len(scores); row += n {
		maxv := scores[row]
		for i := row + 1; i < row+n; i++ {
			if scores[i] > maxv {
				maxv = scores[i]
			}
		}

		var sum float32
		for i := row; i < row+n; i++ {
			e := math32.Exp(scores[i] - maxv)
			out[i] = e
			sum += e
		}
		for i := row; i < row+n; i++ {
			out[i] /= sum
		}
	}
	return out
}
