package nn

import (
	"fmt"

	"github.com/born-ml/embednet/internal/tensor"
)

// Concatenate joins several inputs along the feature axis.
//
// Every input [batch, ...] is flattened to [batch, width_i] and the results are
// placed side by side: [batch, Σ width_i]. Backward splits the incoming
// gradient into slices of the recorded widths and restores each input's shape.
//
// Concatenate also satisfies Layer for the single-input case, where it is a
// Flatten.
type Concatenate struct {
	name string

	lastShapes []tensor.Shape
	lastWidths []int
}

// NewConcatenate creates a Concatenate merge node.
func NewConcatenate(name string) *Concatenate {
	return &Concatenate{name: name}
}

// Name returns the layer name.
func (c *Concatenate) Name() string { return c.name }

// Kind returns KindConcatenate.
func (c *Concatenate) Kind() Kind { return KindConcatenate }

// Parameters returns nil.
func (c *Concatenate) Parameters() []*Parameter { return nil }

func (c *Concatenate) sealed() {}

// MergedShape returns the per-example output shape for the given per-example
// input shapes.
func (c *Concatenate) MergedShape(ins []tensor.Shape) (tensor.Shape, error) {
	if len(ins) == 0 {
		return nil, tensor.NewShapeError("Concatenate", c.name+" needs at least one input")
	}
	width := 0
	for _, s := range ins {
		width += s.NumElements()
	}
	return tensor.Shape{width}, nil
}

// OutputShape is MergedShape for a single input.
func (c *Concatenate) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return c.MergedShape([]tensor.Shape{in})
}

// Merge flattens and concatenates xs. All inputs must share the batch size.
func (c *Concatenate) Merge(xs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(xs) == 0 {
		return nil, tensor.NewShapeError("Concatenate.Merge", c.name+" needs at least one input")
	}
	batch := xs[0].Dim(0)
	flat := make([]*tensor.Tensor, len(xs))
	shapes := make([]tensor.Shape, len(xs))
	widths := make([]int, len(xs))
	for i, x := range xs {
		if x.Dim(0) != batch {
			return nil, tensor.NewShapeError("Concatenate.Merge", "inputs disagree on batch size",
				xs[0].Shape(), x.Shape())
		}
		shapes[i] = x.Shape().Clone()
		widths[i] = x.NumElements() / batch
		f, err := tensor.Reshape(x, tensor.Shape{batch, widths[i]})
		if err != nil {
			return nil, err
		}
		flat[i] = f
	}

	out, err := tensor.ConcatColumns(flat)
	if err != nil {
		return nil, err
	}
	c.lastShapes = shapes
	c.lastWidths = widths
	return out, nil
}

// Split is the backward pass of Merge: it slices grad by the recorded widths
// and reshapes each slice to its input's shape.
func (c *Concatenate) Split(grad *tensor.Tensor) ([]*tensor.Tensor, error) {
	if c.lastWidths == nil {
		return nil, fmt.Errorf("concatenate %q: backward called before forward", c.name)
	}
	parts, err := tensor.SplitColumns(grad, c.lastWidths)
	if err != nil {
		return nil, err
	}
	for i, p := range parts {
		if parts[i], err = tensor.Reshape(p, c.lastShapes[i]); err != nil {
			return nil, err
		}
	}
	c.lastShapes, c.lastWidths = nil, nil
	return parts, nil
}

// Widths returns the per-input widths recorded by the last Merge.
func (c *Concatenate) Widths() []int {
	return c.lastWidths
}

// Forward merges a single input.
func (c *Concatenate) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	return c.Merge([]*tensor.Tensor{x})
}

// Backward splits for a single input.
func (c *Concatenate) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	parts, err := c.Split(grad)
	if err != nil {
		return nil, err
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("concatenate %q: Backward used after a %d-way Merge; use Split", c.name, len(parts))
	}
	return parts[0], nil
}
