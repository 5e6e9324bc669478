package nn

import (
	"fmt"

	"github.com/born-ml/embednet/internal/tensor"
)

// Flatten collapses every non-batch dimension into one.
//
//	[batch, d1, d2, ...] → [batch, d1*d2*...]
type Flatten struct {
	name      string
	lastShape tensor.Shape
}

// NewFlatten creates a Flatten layer.
func NewFlatten(name string) *Flatten {
	return &Flatten{name: name}
}

// Name returns the layer name.
func (f *Flatten) Name() string { return f.name }

// Kind returns KindFlatten.
func (f *Flatten) Kind() Kind { return KindFlatten }

// Parameters returns nil.
func (f *Flatten) Parameters() []*Parameter { return nil }

func (f *Flatten) sealed() {}

// OutputShape returns (Π in).
func (f *Flatten) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return tensor.Shape{in.NumElements()}, nil
}

// Forward reshapes x to [batch, rest].
func (f *Flatten) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	batch := x.Dim(0)
	out, err := tensor.Reshape(x, tensor.Shape{batch, x.NumElements() / batch})
	if err != nil {
		return nil, err
	}
	f.lastShape = x.Shape().Clone()
	return out, nil
}

// Backward restores the input shape.
func (f *Flatten) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if f.lastShape == nil {
		return nil, fmt.Errorf("flatten %q: backward called before forward", f.name)
	}
	out, err := tensor.Reshape(grad, f.lastShape)
	if err != nil {
		return nil, err
	}
	f.lastShape = nil
	return out, nil
}
