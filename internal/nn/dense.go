package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/embednet/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: y = x @ W + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the kernel with shape [in_features, out_features]
//   - b is the bias with shape [1, out_features], broadcast across the batch
//   - y is the output tensor with shape [batch_size, out_features]
//
// Kernels are initialized using Xavier/Glorot uniform. Biases start at zero.
// Activations are separate layers (ReLU, Sigmoid).
//
// Example:
//
//	layer, err := nn.NewDense("dense_1", 4, 8, rng)
//	out, err := layer.Forward(x, nn.Mode{}) // (batch, 4) → (batch, 8)
type Dense struct {
	name        string
	inFeatures  int
	outFeatures int
	kernel      *Parameter // [in_features, out_features]
	bias        *Parameter // [1, out_features]

	lastInput *tensor.Tensor
}

// NewDense creates a Dense layer with Xavier-initialized kernel and zero bias.
func NewDense(name string, inFeatures, outFeatures int, rng *rand.Rand) (*Dense, error) {
	if err := positive(name, "in_features", inFeatures); err != nil {
		return nil, err
	}
	if err := positive(name, "out_features", outFeatures); err != nil {
		return nil, err
	}

	kernel := Xavier(inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures}, rng)
	bias := tensor.Zeros(tensor.Shape{1, outFeatures})

	return &Dense{
		name:        name,
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		kernel:      NewParameter(name+".kernel", kernel),
		bias:        NewParameter(name+".bias", bias),
	}, nil
}

// Name returns the layer name.
func (d *Dense) Name() string { return d.name }

// Kind returns KindDense.
func (d *Dense) Kind() Kind { return KindDense }

// InFeatures returns the input width.
func (d *Dense) InFeatures() int { return d.inFeatures }

// OutFeatures returns the output width.
func (d *Dense) OutFeatures() int { return d.outFeatures }

// Kernel returns the weight parameter.
func (d *Dense) Kernel() *Parameter { return d.kernel }

// Bias returns the bias parameter.
func (d *Dense) Bias() *Parameter { return d.bias }

// Parameters returns [kernel, bias].
func (d *Dense) Parameters() []*Parameter {
	return []*Parameter{d.kernel, d.bias}
}

func (d *Dense) sealed() {}

// OutputShape maps (in_features) to (out_features).
func (d *Dense) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 1 || in[0] != d.inFeatures {
		return nil, tensor.NewShapeError("Dense",
			fmt.Sprintf("%s expects per-example input (%d)", d.name, d.inFeatures), in)
	}
	return tensor.Shape{d.outFeatures}, nil
}

// Forward computes x @ W + b.
func (d *Dense) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != d.inFeatures {
		return nil, tensor.NewShapeError("Dense.Forward",
			fmt.Sprintf("%s expects [batch, %d]", d.name, d.inFeatures), shape)
	}

	xw, err := tensor.MatMul(x, d.kernel.Tensor())
	if err != nil {
		return nil, err
	}
	out, err := tensor.Add(xw, d.bias.Tensor())
	if err != nil {
		return nil, err
	}

	d.lastInput = x
	return out, nil
}

// Backward accumulates grad_W += xᵗ @ g and grad_b += column_sum(g), and
// returns g @ Wᵗ.
func (d *Dense) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if d.lastInput == nil {
		return nil, fmt.Errorf("dense %q: backward called before forward", d.name)
	}
	x := d.lastInput
	if !grad.Shape().Equal(tensor.Shape{x.Dim(0), d.outFeatures}) {
		return nil, tensor.NewShapeError("Dense.Backward", "gradient does not match forward output", grad.Shape())
	}

	gradW, err := tensor.MatMulTransA(x, grad)
	if err != nil {
		return nil, err
	}
	if err := tensor.AddInPlace(d.kernel.Grad(), gradW); err != nil {
		return nil, err
	}
	if err := tensor.AddInPlace(d.bias.Grad(), tensor.SumRows(grad)); err != nil {
		return nil, err
	}

	gradIn, err := tensor.MatMulTransB(grad, d.kernel.Tensor())
	if err != nil {
		return nil, err
	}
	d.lastInput = nil
	return gradIn, nil
}
