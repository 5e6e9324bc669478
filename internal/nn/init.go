package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/embednet/internal/tensor"
)

// Xavier (Glorot) uniform initialization.
//
// Draws from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))), which
// keeps activation variance roughly constant across layers.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.RandUniform(shape, -bound, bound, rng)
}

// EmbeddingInitScale bounds the uniform initialization of embedding tables.
const EmbeddingInitScale = 0.05

// UniformEmbedding initializes a (vocab, dim) table from U(-0.05, 0.05).
func UniformEmbedding(vocab, dim int, rng *rand.Rand) *tensor.Tensor {
	return tensor.RandUniform(tensor.Shape{vocab, dim}, -EmbeddingInitScale, EmbeddingInitScale, rng)
}
