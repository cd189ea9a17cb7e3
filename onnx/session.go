// Package onnx - ONNX Runtime backed collaborators for the segment
// detection pipeline.
//
// The predictor treats the proposal network and classification head as
// opaque numeric functions. This package realizes them over exported
// ONNX models: the regression and scoring arithmetic stays inside the
// model graph, and only its output tensors are consumed.
package onnx

import (
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// TensorSpec names one model input or output and its fixed shape.
type TensorSpec struct {
	Name  string  `json:"name" yaml:"name"`
	Shape []int64 `json:"shape" yaml:"shape"`
}

// Session wraps an ONNX Runtime session with preallocated fixed-shape
// float32 tensors for a 1-D feature model.
type Session struct {
	session *ort.AdvancedSession
	inputs  []*ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
}

// NewSession creates a session for the model at modelPath.
//
// Order of operations:
//  1. Library path check: Ensures the native runtime is accessible.
//  2. Environment setup: Prepares ONNX Runtime internals.
//  3. Tensor allocation: Fixed-shape buffers for every input/output.
//  4. Session options: Threading and graph optimization level.
//  5. Session creation: Loads the model and binds the tensors.
//
// Arguments:
//   - modelPath: Path to the ONNX model file.
//   - inputs: Name and shape of every model input, in model order.
//   - outputs: Name and shape of every model output, in model order.
//
// Returns:
//   - *Session: The runnable session. Close it to release native
//     resources.
//   - error: An error if the native runtime or model cannot be loaded.
func NewSession(modelPath string, inputs, outputs []TensorSpec) (*Session, error) {
	libPath := GetSharedLibPath()
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)

	// Initializing twice is harmless; the native layer is set up once
	// per process.
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "initializing ORT environment")
	}

	s := &Session{}
	inputNames := make([]string, 0, len(inputs))
	inputTensors := make([]ort.ArbitraryTensor, 0, len(inputs))
	for _, spec := range inputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.Shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "creating input tensor %q", spec.Name)
		}
		s.inputs = append(s.inputs, t)
		inputNames = append(inputNames, spec.Name)
		inputTensors = append(inputTensors, t)
	}

	outputNames := make([]string, 0, len(outputs))
	outputTensors := make([]ort.ArbitraryTensor, 0, len(outputs))
	for _, spec := range outputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.Shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "creating output tensor %q", spec.Name)
		}
		s.outputs = append(s.outputs, t)
		outputNames = append(outputNames, spec.Name)
		outputTensors = append(outputTensors, t)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "creating ORT session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(0)
	options.SetInterOpNumThreads(0)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		modelPath, inputNames, outputNames, inputTensors, outputTensors, options)
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "creating ORT session for %s", modelPath)
	}
	s.session = session

	return s, nil
}

// Run copies the given slices into the session's input tensors, runs
// the model, and returns a copy of every output tensor's data.
//
// Arguments:
//   - inputData: One flat slice per model input, in declaration order.
//
// Returns:
//   - One flat slice per model output, in declaration order.
//   - error: An error on count or length mismatch, or from the runtime.
func (s *Session) Run(inputData ...[]float32) ([][]float32, error) {
	if len(inputData) != len(s.inputs) {
		return nil, errors.Errorf("session has %d inputs, got %d", len(s.inputs), len(inputData))
	}
	for i, data := range inputData {
		dst := s.inputs[i].GetData()
		if len(data) != len(dst) {
			return nil, errors.Errorf("input %d expects %d elements, got %d", i, len(dst), len(data))
		}
		copy(dst, data)
	}

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running ORT session")
	}

	out := make([][]float32, len(s.outputs))
	for i, t := range s.outputs {
		out[i] = append([]float32(nil), t.GetData()...)
	}
	return out, nil
}

// Close releases the session and its tensors.
func (s *Session) Close() error {
	for _, t := range s.inputs {
		t.Destroy()
	}
	s.inputs = nil
	for _, t := range s.outputs {
		t.Destroy()
	}
	s.outputs = nil

	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return errors.Wrap(err, "destroying ORT session")
		}
		s.session = nil
	}
	return nil
}
