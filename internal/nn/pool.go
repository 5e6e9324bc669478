package nn

import (
	"fmt"

	"github.com/born-ml/embednet/internal/tensor"
)

// GlobalMaxPool1D reduces the sequence dimension by taking the per-channel maximum.
//
//	[batch, seq_len, channels] → [batch, channels]
//
// Forward records, for every (example, channel), the position that produced
// the maximum; ties go to the first such position. Backward routes the
// gradient to that position only and leaves every other position at zero.
type GlobalMaxPool1D struct {
	name string

	argmax    []int // [batch*channels] winning position
	lastShape tensor.Shape
}

// NewGlobalMaxPool1D creates a global max pooling layer.
func NewGlobalMaxPool1D(name string) *GlobalMaxPool1D {
	return &GlobalMaxPool1D{name: name}
}

// Name returns the layer name.
func (p *GlobalMaxPool1D) Name() string { return p.name }

// Kind returns KindGlobalMaxPool1D.
func (p *GlobalMaxPool1D) Kind() Kind { return KindGlobalMaxPool1D }

// Parameters returns nil; pooling has no trainable state.
func (p *GlobalMaxPool1D) Parameters() []*Parameter { return nil }

func (p *GlobalMaxPool1D) sealed() {}

// OutputShape maps (seq_len, channels) to (channels).
func (p *GlobalMaxPool1D) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 2 {
		return nil, tensor.NewShapeError("GlobalMaxPool1D",
			fmt.Sprintf("%s expects per-example input (seq_len, channels)", p.name), in)
	}
	return tensor.Shape{in[1]}, nil
}

// Forward takes the maximum over positions for every channel.
func (p *GlobalMaxPool1D) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	shape := x.Shape()
	if len(shape) != 3 {
		return nil, tensor.NewShapeError("GlobalMaxPool1D.Forward",
			fmt.Sprintf("%s expects [batch, seq_len, channels]", p.name), shape)
	}
	batch, seqLen, channels := shape[0], shape[1], shape[2]

	out := tensor.Zeros(tensor.Shape{batch, channels})
	argmax := make([]int, batch*channels)
	for b := 0; b < batch; b++ {
		src := x.Row(b)
		dst := out.Row(b)
		for ch := 0; ch < channels; ch++ {
			best, bestPos := src[ch], 0
			for t := 1; t < seqLen; t++ {
				if v := src[t*channels+ch]; v > best {
					best, bestPos = v, t
				}
			}
			dst[ch] = best
			argmax[b*channels+ch] = bestPos
		}
	}

	p.argmax = argmax
	p.lastShape = shape.Clone()
	return out, nil
}

// Backward scatters grad to the recorded maximizing positions.
func (p *GlobalMaxPool1D) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if p.argmax == nil {
		return nil, fmt.Errorf("globalmaxpool1d %q: backward called before forward", p.name)
	}
	batch, channels := p.lastShape[0], p.lastShape[2]
	if !grad.Shape().Equal(tensor.Shape{batch, channels}) {
		return nil, tensor.NewShapeError("GlobalMaxPool1D.Backward", "gradient does not match forward output", grad.Shape())
	}

	out := tensor.Zeros(p.lastShape)
	for b := 0; b < batch; b++ {
		g := grad.Row(b)
		dst := out.Row(b)
		for ch := 0; ch < channels; ch++ {
			dst[p.argmax[b*channels+ch]*channels+ch] = g[ch]
		}
	}

	p.argmax = nil
	return out, nil
}

// Argmax returns the winning position of every (example, channel) from the
// last Forward, laid out as [batch*channels]. Nil once Backward has consumed it.
func (p *GlobalMaxPool1D) Argmax() []int {
	return p.argmax
}
