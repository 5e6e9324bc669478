package tensor

import (
	"math/rand"
)

// RandUniform creates a tensor with values drawn from U(low, high).
//
// The generator is passed explicitly so that initialization is reproducible:
// the same seed always yields the same tensor.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	w := tensor.RandUniform(tensor.Shape{16, 8}, -0.05, 0.05, rng)
func RandUniform(shape Shape, low, high float64, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	span := high - low
	for i := range t.data {
		t.data[i] = low + rng.Float64()*span
	}
	return t
}

// RandNormal creates a tensor with values drawn from N(0, std²).
func RandNormal(shape Shape, std float64, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = rng.NormFloat64() * std
	}
	return t
}
