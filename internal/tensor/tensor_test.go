package tensor

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShape_Validate(t *testing.T) {
	assert.NoError(t, Shape{1, 2}.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
	assert.Error(t, Shape{-1}.Validate())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
}

func TestShape_BatchHelpers(t *testing.T) {
	s := Shape{10, 4}
	assert.True(t, Shape{32, 10, 4}.Equal(s.WithBatch(32)))
	assert.True(t, s.Equal(Shape{32, 10, 4}.Example()))
	assert.Equal(t, "(32, 10, 4)", s.WithBatch(32).String())
}

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 6, x.NumElements())
	assert.Equal(t, 6.0, x.At(1, 2))
	assert.Equal(t, []float64{4, 5, 6}, x.Row(1))

	_, err = FromSlice([]float64{1, 2, 3}, Shape{2, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestFromSlice_Copies(t *testing.T) {
	src := []float64{1, 2}
	x := MustFromSlice(src, Shape{2})
	src[0] = 99
	assert.Equal(t, 1.0, x.At(0))
}

func TestSetAndClone(t *testing.T) {
	x := Zeros(Shape{2, 2})
	x.Set(3, 0, 1)
	c := x.Clone()
	c.Set(7, 0, 1)
	assert.Equal(t, 3.0, x.At(0, 1))
	assert.Equal(t, 7.0, c.At(0, 1))
}

func TestAllFinite(t *testing.T) {
	x := MustFromSlice([]float64{1, 2}, Shape{2})
	assert.True(t, x.AllFinite())
	x.Data()[1] = math.NaN()
	assert.False(t, x.AllFinite())
	x.Data()[1] = math.Inf(-1)
	assert.False(t, x.AllFinite())
}

func TestMatMul(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := MustFromSlice([]float64{7, 8, 9, 10, 11, 12}, Shape{3, 2})

	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.True(t, Shape{2, 2}.Equal(c.Shape()))
	assert.Equal(t, []float64{58, 64, 139, 154}, c.Data())

	_, err = MatMul(a, a)
	assert.ErrorIs(t, err, ErrShape)
}

func TestMatMulTransposed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := RandNormal(Shape{4, 3}, 1, rng)
	b := RandNormal(Shape{4, 5}, 1, rng)

	aT, err := Transpose(a)
	require.NoError(t, err)
	want, err := MatMul(aT, b)
	require.NoError(t, err)
	got, err := MatMulTransA(a, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)

	c := RandNormal(Shape{6, 3}, 1, rng)
	cT, err := Transpose(c)
	require.NoError(t, err)
	want, err = MatMul(a, cT)
	require.NoError(t, err)
	got, err = MatMulTransB(a, c)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)
}

func TestAdd_BatchBroadcast(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{3, 2})

	t.Run("same shape", func(t *testing.T) {
		out, err := Add(a, a)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4, 6, 8, 10, 12}, out.Data())
	})

	t.Run("leading one", func(t *testing.T) {
		b := MustFromSlice([]float64{10, 20}, Shape{1, 2})
		out, err := Add(a, b)
		require.NoError(t, err)
		assert.Equal(t, []float64{11, 22, 13, 24, 15, 26}, out.Data())
	})

	t.Run("batch dim omitted", func(t *testing.T) {
		b := MustFromSlice([]float64{10, 20}, Shape{2})
		out, err := Add(a, b)
		require.NoError(t, err)
		assert.Equal(t, []float64{11, 22, 13, 24, 15, 26}, out.Data())
	})

	t.Run("other dims rejected", func(t *testing.T) {
		b := MustFromSlice([]float64{1, 2, 3}, Shape{3, 1})
		_, err := Add(a, b)
		assert.ErrorIs(t, err, ErrShape)
	})
}

func TestElementwise(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3}, Shape{3})
	b := MustFromSlice([]float64{4, 5, 6}, Shape{3})

	d, err := Sub(b, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3}, d.Data())

	m, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 10, 18}, m.Data())

	assert.Equal(t, []float64{2, 4, 6}, Scale(a, 2).Data())
	assert.Equal(t, []float64{1, 2, 3}, a.Data(), "inputs must not be mutated")

	_, err = Mul(a, Zeros(Shape{2}))
	assert.ErrorIs(t, err, ErrShape)
}

func TestTranspose(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	out, err := Transpose(a)
	require.NoError(t, err)
	assert.True(t, Shape{3, 2}.Equal(out.Shape()))
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, out.Data())

	_, err = Transpose(Zeros(Shape{2, 2, 2}))
	assert.ErrorIs(t, err, ErrShape)
}

func TestReshape(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	out, err := Reshape(a, Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, 4.0, out.At(1, 1))

	_, err = Reshape(a, Shape{4, 2})
	require.Error(t, err)
	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Reshape", se.Op)
}

func TestRowOps(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{3, 2})

	sum := SumRows(a)
	assert.True(t, Shape{1, 2}.Equal(sum.Shape()))
	assert.Equal(t, []float64{9, 12}, sum.Data())

	s, err := SliceRows(a, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5, 6}, s.Data())
	_, err = SliceRows(a, 2, 5)
	assert.ErrorIs(t, err, ErrShape)

	g, err := GatherRows(a, []int{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 1, 2, 5, 6}, g.Data())
	_, err = GatherRows(a, []int{3})
	assert.ErrorIs(t, err, ErrShape)

	dst := Zeros(Shape{3, 2})
	require.NoError(t, ScatterAddRows(dst, []int{1, 1, 0}, a))
	assert.Equal(t, []float64{5, 6, 4, 6, 0, 0}, dst.Data())
}

func TestConcatSplitColumns(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4}, Shape{2, 2})
	b := MustFromSlice([]float64{5, 6}, Shape{2, 1})

	c, err := ConcatColumns([]*Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 5, 3, 4, 6}, c.Data())

	parts, err := SplitColumns(c, []int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, a.Data(), parts[0].Data())
	assert.Equal(t, b.Data(), parts[1].Data())

	_, err = SplitColumns(c, []int{1, 1})
	assert.ErrorIs(t, err, ErrShape)
}

func TestInPlace(t *testing.T) {
	a := MustFromSlice([]float64{1, 2}, Shape{2})
	require.NoError(t, AddInPlace(a, MustFromSlice([]float64{1, 1}, Shape{2})))
	assert.Equal(t, []float64{2, 3}, a.Data())

	require.NoError(t, CopyFrom(a, MustFromSlice([]float64{7, 8}, Shape{2})))
	assert.Equal(t, []float64{7, 8}, a.Data())

	ZeroInPlace(a)
	assert.Equal(t, []float64{0, 0}, a.Data())
}

func TestRandDeterministic(t *testing.T) {
	a := RandUniform(Shape{3, 3}, -1, 1, rand.New(rand.NewSource(7)))
	b := RandUniform(Shape{3, 3}, -1, 1, rand.New(rand.NewSource(7)))
	assert.Equal(t, a.Data(), b.Data())
	for _, v := range a.Data() {
		assert.True(t, v >= -1 && v < 1)
	}
}

func BenchmarkMatMul(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	x := RandNormal(Shape{64, 128}, 1, rng)
	w := RandNormal(Shape{128, 64}, 1, rng)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MatMul(x, w); err != nil {
			b.Fatal(err)
		}
	}
}
