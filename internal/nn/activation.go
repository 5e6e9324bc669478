package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/embednet/internal/tensor"
)

// ReLU applies max(0, x) elementwise.
//
// Backward zeroes the gradient wherever the forward input was ≤ 0.
type ReLU struct {
	name      string
	lastInput *tensor.Tensor
}

// NewReLU creates a ReLU activation layer.
func NewReLU(name string) *ReLU {
	return &ReLU{name: name}
}

// Name returns the layer name.
func (r *ReLU) Name() string { return r.name }

// Kind returns KindReLU.
func (r *ReLU) Kind() Kind { return KindReLU }

// Parameters returns nil; ReLU has no trainable state.
func (r *ReLU) Parameters() []*Parameter { return nil }

func (r *ReLU) sealed() {}

// OutputShape returns the input shape unchanged.
func (r *ReLU) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward computes max(0, x).
func (r *ReLU) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	out := x.Clone()
	data := out.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	r.lastInput = x
	return out, nil
}

// Backward passes grad through where the input was positive.
func (r *ReLU) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if r.lastInput == nil {
		return nil, fmt.Errorf("relu %q: backward called before forward", r.name)
	}
	if !grad.Shape().Equal(r.lastInput.Shape()) {
		return nil, tensor.NewShapeError("ReLU.Backward", "gradient does not match forward output",
			grad.Shape(), r.lastInput.Shape())
	}
	out := grad.Clone()
	data := out.Data()
	for i, v := range r.lastInput.Data() {
		if v <= 0 {
			data[i] = 0
		}
	}
	r.lastInput = nil
	return out, nil
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)) elementwise.
//
// Backward uses the cached output: dσ/dx = σ(x)·(1-σ(x)).
type Sigmoid struct {
	name       string
	lastOutput *tensor.Tensor
}

// NewSigmoid creates a Sigmoid activation layer.
func NewSigmoid(name string) *Sigmoid {
	return &Sigmoid{name: name}
}

// Name returns the layer name.
func (s *Sigmoid) Name() string { return s.name }

// Kind returns KindSigmoid.
func (s *Sigmoid) Kind() Kind { return KindSigmoid }

// Parameters returns nil; Sigmoid has no trainable state.
func (s *Sigmoid) Parameters() []*Parameter { return nil }

func (s *Sigmoid) sealed() {}

// OutputShape returns the input shape unchanged.
func (s *Sigmoid) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward computes σ(x).
func (s *Sigmoid) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	out := x.Clone()
	data := out.Data()
	for i, v := range data {
		data[i] = sigmoid(v)
	}
	s.lastOutput = out
	return out, nil
}

// Backward multiplies grad by σ·(1-σ).
func (s *Sigmoid) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if s.lastOutput == nil {
		return nil, fmt.Errorf("sigmoid %q: backward called before forward", s.name)
	}
	if !grad.Shape().Equal(s.lastOutput.Shape()) {
		return nil, tensor.NewShapeError("Sigmoid.Backward", "gradient does not match forward output",
			grad.Shape(), s.lastOutput.Shape())
	}
	out := grad.Clone()
	data := out.Data()
	for i, y := range s.lastOutput.Data() {
		data[i] *= y * (1 - y)
	}
	s.lastOutput = nil
	return out, nil
}

// sigmoid is evaluated in the form that never overflows exp.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
