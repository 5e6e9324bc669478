package nn

import (
	"fmt"

	"github.com/born-ml/embednet/internal/tensor"
)

// Dropout randomly zeroes units during training.
//
// Uses inverted dropout: each unit is kept with probability 1-p and survivors
// are scaled by 1/(1-p), so evaluation needs no rescaling and is the identity.
// The mask drawn in Forward is reused by Backward.
//
// Example:
//
//	drop, err := nn.NewDropout("dropout_1", 0.5)
//	y, err := drop.Forward(x, nn.Training(rng)) // masked
//	y, err = drop.Forward(x, nn.Mode{})         // identity
type Dropout struct {
	name string
	p    float64

	mask []float64 // 0 or 1/(1-p) per unit; nil when the last Forward did not mask
	ran  bool
}

// NewDropout creates a Dropout layer with drop probability p in [0, 1).
func NewDropout(name string, p float64) (*Dropout, error) {
	if p < 0 || p >= 1 {
		return nil, &ConfigError{Layer: name, Field: "p", Value: p, Reason: "must be in [0, 1)"}
	}
	return &Dropout{name: name, p: p}, nil
}

// Name returns the layer name.
func (d *Dropout) Name() string { return d.name }

// Kind returns KindDropout.
func (d *Dropout) Kind() Kind { return KindDropout }

// Rate returns the drop probability.
func (d *Dropout) Rate() float64 { return d.p }

// Parameters returns nil; Dropout has no trainable state.
func (d *Dropout) Parameters() []*Parameter { return nil }

func (d *Dropout) sealed() {}

// OutputShape returns the input shape unchanged.
func (d *Dropout) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward masks x in training mode and returns a copy of x otherwise.
func (d *Dropout) Forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error) {
	d.ran = true
	d.mask = nil
	if !mode.Training || d.p == 0 {
		return x.Clone(), nil
	}
	if mode.RNG == nil {
		return nil, fmt.Errorf("dropout %q: training mode requires an RNG", d.name)
	}

	scale := 1 / (1 - d.p)
	out := x.Clone()
	data := out.Data()
	mask := make([]float64, len(data))
	for i := range data {
		if mode.RNG.Float64() >= d.p {
			mask[i] = scale
		}
		data[i] *= mask[i]
	}
	d.mask = mask
	return out, nil
}

// Backward applies the cached mask to grad.
func (d *Dropout) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if !d.ran {
		return nil, fmt.Errorf("dropout %q: backward called before forward", d.name)
	}
	d.ran = false
	out := grad.Clone()
	if d.mask == nil {
		return out, nil
	}
	data := out.Data()
	if len(data) != len(d.mask) {
		return nil, tensor.NewShapeError("Dropout.Backward", "gradient does not match forward output", grad.Shape())
	}
	for i, m := range d.mask {
		data[i] *= m
	}
	d.mask = nil
	return out, nil
}
