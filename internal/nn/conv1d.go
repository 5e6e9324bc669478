package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/embednet/internal/parallel"
	"github.com/born-ml/embednet/internal/tensor"
)

// Conv1D implements a 1-D convolution over a sequence of feature vectors.
//
// Input:  [batch, seq_len, channels]
// Kernel: [kernel_size*channels, filters]
// Bias:   [1, filters]
// Output: [batch, seq_len-kernel_size+1, filters]
//
// Stride is 1 and padding is "valid": no position is padded, so every window
// lies entirely inside the sequence.
//
// The implementation uses im2col: each window is flattened into one row of a
// [batch*out_len, kernel_size*channels] matrix, after which the convolution is
// a single MatMul. Window extraction and the inverse scatter run per example
// through internal/parallel; the weight gradient is one MatMul over all rows,
// so results do not depend on the worker count.
type Conv1D struct {
	name       string
	kernelSize int
	channels   int
	filters    int
	kernel     *Parameter
	bias       *Parameter
	par        parallel.Config

	lastCols  *tensor.Tensor
	lastShape tensor.Shape
}

// NewConv1D creates a Conv1D layer with Xavier-initialized kernel and zero bias.
func NewConv1D(name string, kernelSize, channels, filters int, rng *rand.Rand) (*Conv1D, error) {
	if err := positive(name, "kernel_size", kernelSize); err != nil {
		return nil, err
	}
	if err := positive(name, "channels", channels); err != nil {
		return nil, err
	}
	if err := positive(name, "filters", filters); err != nil {
		return nil, err
	}

	fanIn := kernelSize * channels
	kernel := Xavier(fanIn, filters, tensor.Shape{fanIn, filters}, rng)

	return &Conv1D{
		name:       name,
		kernelSize: kernelSize,
		channels:   channels,
		filters:    filters,
		kernel:     NewParameter(name+".kernel", kernel),
		bias:       NewParameter(name+".bias", tensor.Zeros(tensor.Shape{1, filters})),
		par:        parallel.DefaultConfig(),
	}, nil
}

// SetParallel overrides the per-example fan-out configuration.
func (c *Conv1D) SetParallel(cfg parallel.Config) { c.par = cfg }

// Name returns the layer name.
func (c *Conv1D) Name() string { return c.name }

// Kind returns KindConv1D.
func (c *Conv1D) Kind() Kind { return KindConv1D }

// KernelSize returns the window length.
func (c *Conv1D) KernelSize() int { return c.kernelSize }

// Filters returns the number of output channels.
func (c *Conv1D) Filters() int { return c.filters }

// Kernel returns the weight parameter.
func (c *Conv1D) Kernel() *Parameter { return c.kernel }

// Bias returns the bias parameter.
func (c *Conv1D) Bias() *Parameter { return c.bias }

// Parameters returns [kernel, bias].
func (c *Conv1D) Parameters() []*Parameter {
	return []*Parameter{c.kernel, c.bias}
}

func (c *Conv1D) sealed() {}

// OutputShape maps (seq_len, channels) to (seq_len-kernel_size+1, filters).
//
// A sequence shorter than the kernel is a configuration problem of the model
// being built, so it is reported as a ConfigError.
func (c *Conv1D) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 2 || in[1] != c.channels {
		return nil, tensor.NewShapeError("Conv1D",
			fmt.Sprintf("%s expects per-example input (seq_len, %d)", c.name, c.channels), in)
	}
	if in[0] < c.kernelSize {
		return nil, &ConfigError{
			Layer:  c.name,
			Field:  "kernel_size",
			Value:  c.kernelSize,
			Reason: fmt.Sprintf("exceeds sequence length %d", in[0]),
		}
	}
	return tensor.Shape{in[0] - c.kernelSize + 1, c.filters}, nil
}

// Forward convolves every example in the batch.
func (c *Conv1D) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != c.channels {
		return nil, tensor.NewShapeError("Conv1D.Forward",
			fmt.Sprintf("%s expects [batch, seq_len, %d]", c.name, c.channels), shape)
	}
	batch, seqLen := shape[0], shape[1]
	if seqLen < c.kernelSize {
		return nil, tensor.NewShapeError("Conv1D.Forward",
			fmt.Sprintf("sequence length %d shorter than kernel size %d", seqLen, c.kernelSize), shape)
	}
	outLen := seqLen - c.kernelSize + 1

	cols := c.im2col(x, outLen)
	y, err := tensor.MatMul(cols, c.kernel.Tensor())
	if err != nil {
		return nil, err
	}
	y, err = tensor.Add(y, c.bias.Tensor())
	if err != nil {
		return nil, err
	}
	out, err := tensor.Reshape(y, tensor.Shape{batch, outLen, c.filters})
	if err != nil {
		return nil, err
	}

	c.lastCols = cols
	c.lastShape = shape.Clone()
	return out, nil
}

// Backward accumulates kernel and bias gradients and returns the gradient
// with respect to the input sequence.
func (c *Conv1D) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if c.lastCols == nil {
		return nil, fmt.Errorf("conv1d %q: backward called before forward", c.name)
	}
	batch, seqLen := c.lastShape[0], c.lastShape[1]
	outLen := seqLen - c.kernelSize + 1
	if !grad.Shape().Equal(tensor.Shape{batch, outLen, c.filters}) {
		return nil, tensor.NewShapeError("Conv1D.Backward", "gradient does not match forward output", grad.Shape())
	}

	g, err := tensor.Reshape(grad, tensor.Shape{batch * outLen, c.filters})
	if err != nil {
		return nil, err
	}

	gradW, err := tensor.MatMulTransA(c.lastCols, g)
	if err != nil {
		return nil, err
	}
	if err := tensor.AddInPlace(c.kernel.Grad(), gradW); err != nil {
		return nil, err
	}
	if err := tensor.AddInPlace(c.bias.Grad(), tensor.SumRows(g)); err != nil {
		return nil, err
	}

	gradCols, err := tensor.MatMulTransB(g, c.kernel.Tensor())
	if err != nil {
		return nil, err
	}
	gradIn := c.col2im(gradCols, batch, seqLen, outLen)

	c.lastCols = nil
	return gradIn, nil
}

// im2col lays every window out as a row. Windows of a row-major
// [seq_len, channels] example are contiguous, so each row is a single copy.
func (c *Conv1D) im2col(x *tensor.Tensor, outLen int) *tensor.Tensor {
	batch := x.Dim(0)
	width := c.kernelSize * c.channels
	cols := tensor.Zeros(tensor.Shape{batch * outLen, width})
	dst := cols.Data()

	parallel.For(batch, func(b int) {
		src := x.Row(b)
		for t := 0; t < outLen; t++ {
			row := (b*outLen + t) * width
			copy(dst[row:row+width], src[t*c.channels:t*c.channels+width])
		}
	}, c.par)
	return cols
}

// col2im scatters window gradients back onto sequence positions. Each example
// is written by exactly one iteration, and positions inside an example are
// summed in window order.
func (c *Conv1D) col2im(gradCols *tensor.Tensor, batch, seqLen, outLen int) *tensor.Tensor {
	width := c.kernelSize * c.channels
	out := tensor.Zeros(tensor.Shape{batch, seqLen, c.channels})
	src := gradCols.Data()

	parallel.For(batch, func(b int) {
		dst := out.Row(b)
		for t := 0; t < outLen; t++ {
			row := src[(b*outLen+t)*width : (b*outLen+t+1)*width]
			window := dst[t*c.channels : t*c.channels+width]
			for i, v := range row {
				window[i] += v
			}
		}
	}, c.par)
	return out
}
