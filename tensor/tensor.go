// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensors used throughout embednet.
//
// # Overview
//
// A Tensor is a shape plus a flat row-major []float64. The first dimension is
// always the batch; no operation assumes a fixed batch size.
//
//	x := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	w := tensor.Zeros(tensor.Shape{3, 4})
//	y, err := tensor.MatMul(x, w) // (2, 4)
//
// Shape mismatches are reported as *ShapeError and match ErrShape:
//
//	if errors.Is(err, tensor.ErrShape) { ... }
package tensor

import (
	"math/rand"

	"github.com/born-ml/embednet/internal/tensor"
)

// Tensor is a dense row-major float64 tensor.
type Tensor = tensor.Tensor

// Shape lists the size of each dimension.
type Shape = tensor.Shape

// ShapeError reports incompatible shapes.
type ShapeError = tensor.ShapeError

// ErrShape is matched by every ShapeError.
var ErrShape = tensor.ErrShape

// Creation

// New creates a zero tensor, validating the shape.
func New(shape Shape) (*Tensor, error) { return tensor.New(shape) }

// Zeros creates a zero tensor. It panics on an invalid shape.
func Zeros(shape Shape) *Tensor { return tensor.Zeros(shape) }

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor { return tensor.Full(shape, value) }

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float64, shape Shape) (*Tensor, error) { return tensor.FromSlice(data, shape) }

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice(data []float64, shape Shape) *Tensor { return tensor.MustFromSlice(data, shape) }

// RandUniform draws every element from U(low, high).
func RandUniform(shape Shape, low, high float64, rng *rand.Rand) *Tensor {
	return tensor.RandUniform(shape, low, high, rng)
}

// RandNormal draws every element from N(0, std²).
func RandNormal(shape Shape, std float64, rng *rand.Rand) *Tensor {
	return tensor.RandNormal(shape, std, rng)
}

// Operations

// MatMul multiplies two 2-D tensors.
func MatMul(a, b *Tensor) (*Tensor, error) { return tensor.MatMul(a, b) }

// Add adds b to a, broadcasting b along the batch dimension when needed.
func Add(a, b *Tensor) (*Tensor, error) { return tensor.Add(a, b) }

// Sub subtracts b from a elementwise.
func Sub(a, b *Tensor) (*Tensor, error) { return tensor.Sub(a, b) }

// Mul multiplies a and b elementwise.
func Mul(a, b *Tensor) (*Tensor, error) { return tensor.Mul(a, b) }

// Scale multiplies every element by c.
func Scale(t *Tensor, c float64) *Tensor { return tensor.Scale(t, c) }

// Transpose transposes a 2-D tensor.
func Transpose(t *Tensor) (*Tensor, error) { return tensor.Transpose(t) }

// Reshape returns a copy of t with a new shape of the same element count.
func Reshape(t *Tensor, shape Shape) (*Tensor, error) { return tensor.Reshape(t, shape) }

// SliceRows returns rows [start, end) along the batch dimension.
func SliceRows(t *Tensor, start, end int) (*Tensor, error) { return tensor.SliceRows(t, start, end) }

// GatherRows returns the rows listed in idx.
func GatherRows(t *Tensor, idx []int) (*Tensor, error) { return tensor.GatherRows(t, idx) }

// ConcatColumns joins 2-D tensors along the feature dimension.
func ConcatColumns(ts []*Tensor) (*Tensor, error) { return tensor.ConcatColumns(ts) }
