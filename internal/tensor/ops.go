package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatMul computes a @ b for 2-D tensors.
//
//	(M, K) @ (K, N) → (M, N)
func MatMul(a, b *Tensor) (*Tensor, error) {
	return matmul("MatMul", a, b, false, false)
}

// MatMulTransA computes aᵗ @ b without materializing the transpose.
//
//	(K, M)ᵗ @ (K, N) → (M, N)
func MatMulTransA(a, b *Tensor) (*Tensor, error) {
	return matmul("MatMulTransA", a, b, true, false)
}

// MatMulTransB computes a @ bᵗ without materializing the transpose.
//
//	(M, K) @ (N, K)ᵗ → (M, N)
func MatMulTransB(a, b *Tensor) (*Tensor, error) {
	return matmul("MatMulTransB", a, b, false, true)
}

func matmul(op string, a, b *Tensor, transA, transB bool) (*Tensor, error) {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		return nil, shapeErr(op, "both operands must be 2-D", a.shape, b.shape)
	}

	var am, bm mat.Matrix = mat.NewDense(a.shape[0], a.shape[1], a.data),
		mat.NewDense(b.shape[0], b.shape[1], b.data)
	if transA {
		am = am.T()
	}
	if transB {
		bm = bm.T()
	}

	m, k := am.Dims()
	k2, n := bm.Dims()
	if k != k2 {
		return nil, shapeErr(op, fmt.Sprintf("inner dimensions differ (%d vs %d)", k, k2), a.shape, b.shape)
	}

	out := Zeros(Shape{m, n})
	dst := mat.NewDense(m, n, out.data)
	dst.Mul(am, bm)
	return out, nil
}

// Add returns a + b.
//
// b must either match a exactly or broadcast along a's leading (batch) dimension:
// for a of shape (B, rest...), b may be (1, rest...) or (rest...). No other
// broadcasting is supported.
func Add(a, b *Tensor) (*Tensor, error) {
	if !batchBroadcastable(a.shape, b.shape) {
		return nil, shapeErr("Add", "operands not broadcastable along the batch dimension", a.shape, b.shape)
	}
	out := Zeros(a.shape)
	if len(a.data) == len(b.data) {
		floats.AddTo(out.data, a.data, b.data)
		return out, nil
	}
	width := a.rowWidth()
	for i := 0; i < a.shape[0]; i++ {
		lo, hi := i*width, (i+1)*width
		floats.AddTo(out.data[lo:hi], a.data[lo:hi], b.data)
	}
	return out, nil
}

// Sub returns a - b for equally shaped tensors.
func Sub(a, b *Tensor) (*Tensor, error) {
	if !a.shape.Equal(b.shape) {
		return nil, shapeErr("Sub", "shapes differ", a.shape, b.shape)
	}
	out := Zeros(a.shape)
	floats.SubTo(out.data, a.data, b.data)
	return out, nil
}

// Mul returns the elementwise (Hadamard) product of equally shaped tensors.
func Mul(a, b *Tensor) (*Tensor, error) {
	if !a.shape.Equal(b.shape) {
		return nil, shapeErr("Mul", "shapes differ", a.shape, b.shape)
	}
	out := Zeros(a.shape)
	floats.MulTo(out.data, a.data, b.data)
	return out, nil
}

// Scale returns c * t.
func Scale(t *Tensor, c float64) *Tensor {
	out := t.Clone()
	floats.Scale(c, out.data)
	return out
}

// Transpose swaps the two axes of a 2-D tensor.
func Transpose(t *Tensor) (*Tensor, error) {
	if len(t.shape) != 2 {
		return nil, shapeErr("Transpose", "tensor must be 2-D", t.shape)
	}
	rows, cols := t.shape[0], t.shape[1]
	out := Zeros(Shape{cols, rows})
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.data[j*rows+i] = t.data[i*cols+j]
		}
	}
	return out, nil
}

// Reshape returns a copy of t with a new shape.
// Fails with a ShapeError if the element counts differ.
func Reshape(t *Tensor, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, shapeErr("Reshape", err.Error(), t.shape, shape)
	}
	if shape.NumElements() != len(t.data) {
		return nil, shapeErr("Reshape",
			fmt.Sprintf("element count %d cannot become %d", len(t.data), shape.NumElements()), t.shape, shape)
	}
	out := t.Clone()
	out.shape = shape.Clone()
	out.strides = shape.ComputeStrides()
	return out, nil
}

// SumRows reduces the leading dimension: (B, rest...) → (1, rest...).
// Summation runs in row order so results are reproducible.
func SumRows(t *Tensor) *Tensor {
	shape := t.shape.Clone()
	shape[0] = 1
	out := Zeros(shape)
	for i := 0; i < t.shape[0]; i++ {
		floats.Add(out.data, t.Row(i))
	}
	return out
}

// SliceRows copies rows [start, end) along the leading dimension.
func SliceRows(t *Tensor, start, end int) (*Tensor, error) {
	if start < 0 || end > t.shape[0] || start >= end {
		return nil, shapeErr("SliceRows", fmt.Sprintf("invalid row range [%d, %d)", start, end), t.shape)
	}
	shape := t.shape.Clone()
	shape[0] = end - start
	out := Zeros(shape)
	width := t.rowWidth()
	copy(out.data, t.data[start*width:end*width])
	return out, nil
}

// GatherRows copies the rows listed in idx, in order. Indices may repeat.
//
//	(N, rest...) gathered by len(idx) indices → (len(idx), rest...)
func GatherRows(t *Tensor, idx []int) (*Tensor, error) {
	if len(idx) == 0 {
		return nil, shapeErr("GatherRows", "no rows requested", t.shape)
	}
	shape := t.shape.Clone()
	shape[0] = len(idx)
	out := Zeros(shape)
	for i, r := range idx {
		if r < 0 || r >= t.shape[0] {
			return nil, shapeErr("GatherRows", fmt.Sprintf("row %d out of range [0, %d)", r, t.shape[0]), t.shape)
		}
		copy(out.Row(i), t.Row(r))
	}
	return out, nil
}

// ScatterAddRows adds src row i into dst row idx[i], in place.
// Repeated indices accumulate.
func ScatterAddRows(dst *Tensor, idx []int, src *Tensor) error {
	if src.shape[0] != len(idx) || dst.rowWidth() != src.rowWidth() {
		return shapeErr("ScatterAddRows", "source rows do not match indices or row width", dst.shape, src.shape)
	}
	for i, r := range idx {
		if r < 0 || r >= dst.shape[0] {
			return shapeErr("ScatterAddRows", fmt.Sprintf("row %d out of range [0, %d)", r, dst.shape[0]), dst.shape)
		}
		floats.Add(dst.Row(r), src.Row(i))
	}
	return nil
}

// ConcatColumns joins 2-D tensors with equal row counts side by side.
//
//	(B, a) ++ (B, b) → (B, a+b)
func ConcatColumns(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, shapeErr("ConcatColumns", "at least one tensor required")
	}
	rows := ts[0].shape[0]
	width := 0
	for _, t := range ts {
		if len(t.shape) != 2 || t.shape[0] != rows {
			return nil, shapeErr("ConcatColumns", "all operands must be 2-D with equal row counts", ts[0].shape, t.shape)
		}
		width += t.shape[1]
	}
	out := Zeros(Shape{rows, width})
	for r := 0; r < rows; r++ {
		dst := out.Row(r)
		for _, t := range ts {
			n := copy(dst, t.Row(r))
			dst = dst[n:]
		}
	}
	return out, nil
}

// SplitColumns is the inverse of ConcatColumns.
func SplitColumns(t *Tensor, widths []int) ([]*Tensor, error) {
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(t.shape) != 2 || total != t.shape[1] {
		return nil, shapeErr("SplitColumns", fmt.Sprintf("widths %v do not sum to column count", widths), t.shape)
	}
	rows := t.shape[0]
	parts := make([]*Tensor, len(widths))
	for i, w := range widths {
		parts[i] = Zeros(Shape{rows, w})
	}
	for r := 0; r < rows; r++ {
		src := t.Row(r)
		for i, w := range widths {
			copy(parts[i].Row(r), src[:w])
			src = src[w:]
		}
	}
	return parts, nil
}

// AddInPlace performs dst += src for equally sized tensors.
func AddInPlace(dst, src *Tensor) error {
	if len(dst.data) != len(src.data) {
		return shapeErr("AddInPlace", "element counts differ", dst.shape, src.shape)
	}
	floats.Add(dst.data, src.data)
	return nil
}

// CopyFrom overwrites dst's values with src's. Shapes must match.
func CopyFrom(dst, src *Tensor) error {
	if !dst.shape.Equal(src.shape) {
		return shapeErr("CopyFrom", "shapes differ", dst.shape, src.shape)
	}
	copy(dst.data, src.data)
	return nil
}

// ZeroInPlace sets every element of t to zero.
func ZeroInPlace(t *Tensor) {
	for i := range t.data {
		t.data[i] = 0
	}
}
