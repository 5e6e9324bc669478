package nn

import (
	"math"
	"sort"

	"github.com/born-ml/embednet/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Parameter represents a trainable tensor and its accumulated gradient.
//
// Dense parameters keep a gradient tensor of the same shape. Sparse parameters
// (embedding tables) keep a SparseGrad instead, holding only the rows touched
// since the last ZeroGrad.
//
// Example:
//
//	w := nn.NewParameter("dense_1.kernel", tensor.Zeros(tensor.Shape{4, 2}))
//	w.Grad()   // (4, 2) zeros
//	w.Sparse() // nil
type Parameter struct {
	name   string
	value  *tensor.Tensor
	grad   *tensor.Tensor // nil for sparse parameters
	sparse *SparseGrad    // nil for dense parameters
}

// NewParameter creates a dense parameter with a zeroed gradient.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
		grad:  tensor.Zeros(value.Shape()),
	}
}

// NewSparseParameter creates a 2-D parameter whose gradient is tracked per row.
func NewSparseParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{
		name:   name,
		value:  value,
		sparse: NewSparseGrad(value.Dim(1)),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter values.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.value
}

// Grad returns the dense gradient, or nil for sparse parameters.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// Sparse returns the row gradient buffer, or nil for dense parameters.
func (p *Parameter) Sparse() *SparseGrad {
	return p.sparse
}

// IsSparse reports whether gradients are tracked per row.
func (p *Parameter) IsSparse() bool {
	return p.sparse != nil
}

// ZeroGrad clears the accumulated gradient.
//
// Must run before every batch's backward pass; a stale gradient from the
// previous batch would be applied twice.
func (p *Parameter) ZeroGrad() {
	if p.sparse != nil {
		p.sparse.Clear()
		return
	}
	tensor.ZeroInPlace(p.grad)
}

// GradFinite reports whether the accumulated gradient has no NaN/Inf values.
func (p *Parameter) GradFinite() bool {
	if p.sparse != nil {
		return p.sparse.finite()
	}
	return p.grad.AllFinite()
}

// SparseGrad accumulates gradient rows for an embedding table.
//
// Adding a row that is already present sums into it, so an id that appears
// several times in a batch contributes once per occurrence.
type SparseGrad struct {
	width int
	rows  map[int][]float64
}

// NewSparseGrad creates an empty buffer for rows of the given width.
func NewSparseGrad(width int) *SparseGrad {
	return &SparseGrad{
		width: width,
		rows:  make(map[int][]float64),
	}
}

// Add sums g into row.
func (s *SparseGrad) Add(row int, g []float64) {
	acc, ok := s.rows[row]
	if !ok {
		acc = make([]float64, s.width)
		s.rows[row] = acc
	}
	floats.Add(acc, g)
}

// Row returns the accumulated gradient for row, or nil if untouched.
func (s *SparseGrad) Row(row int) []float64 {
	return s.rows[row]
}

// Rows returns the touched row indices in ascending order.
func (s *SparseGrad) Rows() []int {
	out := make([]int, 0, len(s.rows))
	for r := range s.rows {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of touched rows.
func (s *SparseGrad) Len() int {
	return len(s.rows)
}

// Width returns the row width.
func (s *SparseGrad) Width() int {
	return s.width
}

// Clear drops every accumulated row.
func (s *SparseGrad) Clear() {
	clear(s.rows)
}

// Dense materializes the buffer as a (numRows, width) tensor; untouched rows are zero.
func (s *SparseGrad) Dense(numRows int) *tensor.Tensor {
	out := tensor.Zeros(tensor.Shape{numRows, s.width})
	for r, g := range s.rows {
		copy(out.Row(r), g)
	}
	return out
}

func (s *SparseGrad) finite() bool {
	for _, g := range s.rows {
		for _, v := range g {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
