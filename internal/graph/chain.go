package graph

import (
	"fmt"

	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
)

// Chain runs layers one after another.
//
// Each layer's output becomes the next layer's input; Backward visits the
// layers in reverse and hands each one the gradient produced by its successor.
//
// Example:
//
//	head := graph.NewChain("head",
//	    dense1,
//	    nn.NewReLU("relu_1"),
//	    dense2,
//	)
//
//	out, err := head.Forward(x, nn.Mode{})
type Chain struct {
	name   string
	layers []nn.Layer
}

// NewChain creates a Chain from layers, in execution order.
func NewChain(name string, layers ...nn.Layer) *Chain {
	return &Chain{name: name, layers: layers}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Add appends a layer to the chain.
func (c *Chain) Add(layer nn.Layer) {
	c.layers = append(c.layers, layer)
}

// Len returns the number of layers.
func (c *Chain) Len() int { return len(c.layers) }

// Layers returns the layers in execution order.
func (c *Chain) Layers() []nn.Layer { return c.layers }

// Parameters returns every layer's parameters, in execution order.
func (c *Chain) Parameters() []*nn.Parameter {
	var params []*nn.Parameter
	for _, l := range c.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// OutputShape infers the per-example output shape for a per-example input
// shape, failing at the first layer that rejects its input.
func (c *Chain) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	shape := in
	for _, l := range c.layers {
		out, err := l.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("%s: layer %q (%s) with input %v: %w", c.name, l.Name(), l.Kind(), shape, err)
		}
		shape = out
	}
	return shape, nil
}

// Forward applies every layer in order.
func (c *Chain) Forward(x *tensor.Tensor, mode nn.Mode) (*tensor.Tensor, error) {
	out := x
	for _, l := range c.layers {
		var err error
		if out, err = l.Forward(out, mode); err != nil {
			return nil, fmt.Errorf("%s: forward %q: %w", c.name, l.Name(), err)
		}
	}
	return out, nil
}

// Backward propagates grad through the layers in reverse order and returns the
// gradient with respect to the chain input. The result is nil when the first
// layer is an Embedding.
func (c *Chain) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	g := grad
	for i := len(c.layers) - 1; i >= 0; i-- {
		l := c.layers[i]
		if g == nil {
			return nil, fmt.Errorf("%s: layer %q has no gradient to propagate", c.name, l.Name())
		}
		var err error
		if g, err = l.Backward(g); err != nil {
			return nil, fmt.Errorf("%s: backward %q: %w", c.name, l.Name(), err)
		}
	}
	return g, nil
}
