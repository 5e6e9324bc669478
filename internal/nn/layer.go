// Package nn implements the layers of the embedding learning core.
//
// The layer set is closed: Dense, Embedding, Conv1D, GlobalMaxPool1D, Dropout,
// Concatenate, Flatten, ReLU and Sigmoid. Every layer owns its parameters,
// computes its own forward pass, caches what its backward pass needs, and
// accumulates parameter gradients by hand. There is no tape.
//
// Shapes always carry a leading batch dimension at run time; OutputShape works
// on per-example shapes (batch dimension removed) so models can be validated
// before any data is seen.
package nn

import (
	"math/rand"

	"github.com/born-ml/embednet/internal/tensor"
)

// Kind tags the concrete layer type behind a Layer.
type Kind int

// Layer kinds.
const (
	KindDense Kind = iota
	KindEmbedding
	KindConv1D
	KindGlobalMaxPool1D
	KindDropout
	KindConcatenate
	KindFlatten
	KindReLU
	KindSigmoid
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDense:
		return "Dense"
	case KindEmbedding:
		return "Embedding"
	case KindConv1D:
		return "Conv1D"
	case KindGlobalMaxPool1D:
		return "GlobalMaxPool1D"
	case KindDropout:
		return "Dropout"
	case KindConcatenate:
		return "Concatenate"
	case KindFlatten:
		return "Flatten"
	case KindReLU:
		return "ReLU"
	case KindSigmoid:
		return "Sigmoid"
	default:
		return "Unknown"
	}
}

// Mode carries per-call execution state into Forward.
//
// The zero Mode is evaluation mode. Training mode must supply the generator that
// stochastic layers (Dropout) draw from, so every random draw is reproducible
// from the caller's seed.
type Mode struct {
	Training bool
	RNG      *rand.Rand
}

// Training returns a training Mode drawing randomness from rng.
func Training(rng *rand.Rand) Mode {
	return Mode{Training: true, RNG: rng}
}

// Layer is the capability shared by every layer kind.
//
// Forward caches whatever Backward needs; Backward must be called at most once
// per Forward, with a gradient shaped like Forward's output. Backward returns the
// gradient with respect to the layer input (nil for Embedding, whose input is
// not differentiable) and adds parameter gradients into each Parameter.
type Layer interface {
	// Name is the stable identifier used to name this layer's parameters.
	Name() string

	// Kind reports the concrete layer type.
	Kind() Kind

	// OutputShape maps a per-example input shape to a per-example output shape,
	// failing with a ShapeError when the input is not acceptable.
	OutputShape(in tensor.Shape) (tensor.Shape, error)

	// Forward computes the layer output for a batch.
	Forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error)

	// Backward propagates grad (dLoss/dOutput) to the input and parameters.
	Backward(grad *tensor.Tensor) (*tensor.Tensor, error)

	// Parameters returns the trainable parameters, in a stable order.
	Parameters() []*Parameter

	// sealed keeps the layer set closed to this package.
	sealed()
}

// Updater applies one optimizer update to a parameter.
//
// Implemented by the optimizers in internal/optim. For sparse parameters the
// update must only touch rows present in the parameter's SparseGrad.
type Updater interface {
	Update(p *Parameter) error
}
