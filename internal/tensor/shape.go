package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// WithBatch prepends a batch dimension to a per-example shape.
//
//	Shape{10, 4}.WithBatch(32) → (32, 10, 4)
func (s Shape) WithBatch(batch int) Shape {
	out := make(Shape, 0, len(s)+1)
	out = append(out, batch)
	return append(out, s...)
}

// Example drops the leading batch dimension.
// The result shares no memory with s.
func (s Shape) Example() Shape {
	if len(s) == 0 {
		return Shape{}
	}
	return s[1:].Clone()
}

// String formats the shape as (d0, d1, ...).
func (s Shape) String() string {
	out := "("
	for i, d := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprint(d)
	}
	return out + ")"
}

// batchBroadcastable reports whether b can be added to a by repeating it along
// the leading (batch) dimension of a.
//
// Accepted forms for a = (B, rest...):
//
//	b = (B, rest...)  same shape
//	b = (1, rest...)  explicit batch dim of one
//	b = (rest...)     batch dim omitted
func batchBroadcastable(a, b Shape) bool {
	if a.Equal(b) {
		return true
	}
	if len(a) == 0 {
		return false
	}
	rest := a[1:]
	if len(b) == len(a) && b[0] == 1 && Shape(b[1:]).Equal(rest) {
		return true
	}
	return b.Equal(rest)
}
