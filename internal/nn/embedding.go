package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/embednet/internal/tensor"
)

// Embedding is a lookup table that maps ids in [0, vocab) to learned vectors.
//
// Architecture:
//   - Weight: (vocab, dim) sparse parameter
//   - Forward: ids (batch, seq...) → vectors (batch, seq..., dim)
//   - Backward: gradient rows are summed into a per-row buffer; only rows seen
//     in the batch are ever updated by the optimizer
//
// Id 0 is an ordinary row. Padded sequences look up and train row 0 like any
// other token.
//
// Example:
//
//	users, err := nn.NewEmbedding("user_embedding", 5, 2, rng)
//	vecs, err := users.Lookup([]int{0, 3, 3}) // (3, 2)
type Embedding struct {
	name   string
	vocab  int
	dim    int
	weight *Parameter

	lastIDs   []int
	lastShape tensor.Shape
}

// NewEmbedding creates an embedding table initialized from U(-0.05, 0.05).
func NewEmbedding(name string, vocab, dim int, rng *rand.Rand) (*Embedding, error) {
	if err := positive(name, "vocab", vocab); err != nil {
		return nil, err
	}
	if err := positive(name, "dim", dim); err != nil {
		return nil, err
	}
	return NewEmbeddingWithWeight(name, UniformEmbedding(vocab, dim, rng))
}

// NewEmbeddingWithWeight creates an Embedding around pre-initialized weights.
func NewEmbeddingWithWeight(name string, weight *tensor.Tensor) (*Embedding, error) {
	shape := weight.Shape()
	if len(shape) != 2 {
		return nil, &ConfigError{Layer: name, Field: "weight", Value: shape, Reason: "must be 2-D (vocab, dim)"}
	}
	return &Embedding{
		name:   name,
		vocab:  shape[0],
		dim:    shape[1],
		weight: NewSparseParameter(name+".weight", weight),
	}, nil
}

// Name returns the layer name.
func (e *Embedding) Name() string { return e.name }

// Kind returns KindEmbedding.
func (e *Embedding) Kind() Kind { return KindEmbedding }

// VocabSize returns the number of rows in the table.
func (e *Embedding) VocabSize() int { return e.vocab }

// Dim returns the embedding dimension.
func (e *Embedding) Dim() int { return e.dim }

// Weight returns the table parameter.
func (e *Embedding) Weight() *Parameter { return e.weight }

// Parameters returns the table parameter.
func (e *Embedding) Parameters() []*Parameter {
	return []*Parameter{e.weight}
}

func (e *Embedding) sealed() {}

// OutputShape appends the embedding dimension to the id shape.
func (e *Embedding) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	out := in.Clone()
	return append(out, e.dim), nil
}

// Lookup gathers one row per id.
//
//	len(ids) ids → (len(ids), dim)
//
// Fails with a RangeError naming the table and the first bad id.
func (e *Embedding) Lookup(ids []int) (*tensor.Tensor, error) {
	if err := e.checkIDs(ids); err != nil {
		return nil, err
	}
	out, err := tensor.GatherRows(e.weight.Tensor(), ids)
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", e.name, err)
	}
	return out, nil
}

// AccumulateGradient adds gradRows[i] into the buffered gradient of row ids[i].
// Repeated ids sum.
func (e *Embedding) AccumulateGradient(ids []int, gradRows *tensor.Tensor) error {
	if !gradRows.Shape().Equal(tensor.Shape{len(ids), e.dim}) {
		return tensor.NewShapeError("Embedding.AccumulateGradient",
			fmt.Sprintf("expected (%d, %d) gradient rows", len(ids), e.dim), gradRows.Shape())
	}
	if err := e.checkIDs(ids); err != nil {
		return err
	}
	buf := e.weight.Sparse()
	for i, id := range ids {
		buf.Add(id, gradRows.Row(i))
	}
	return nil
}

// ApplyOptimizerStep updates only the rows present in the gradient buffer,
// then clears the buffer.
func (e *Embedding) ApplyOptimizerStep(u Updater) error {
	if err := u.Update(e.weight); err != nil {
		return fmt.Errorf("embedding %q: %w", e.name, err)
	}
	e.weight.Sparse().Clear()
	return nil
}

// Touched returns the rows currently holding buffered gradient, ascending.
func (e *Embedding) Touched() []int {
	return e.weight.Sparse().Rows()
}

// Forward looks up every id in x.
//
// x holds integral id values with shape (batch, seq...). The output has shape
// (batch, seq..., dim).
func (e *Embedding) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	data := x.Data()
	ids := make([]int, len(data))
	for i, v := range data {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, &RangeError{Table: e.name, ID: -1, Size: e.vocab, Value: v, Detail: "id is not an integer"}
		}
		ids[i] = int(v)
	}

	rows, err := e.Lookup(ids)
	if err != nil {
		return nil, err
	}

	outShape := append(x.Shape().Clone(), e.dim)
	out, err := tensor.Reshape(rows, outShape)
	if err != nil {
		return nil, err
	}

	e.lastIDs = ids
	e.lastShape = outShape
	return out, nil
}

// Backward scatters grad into the row buffer. Ids carry no gradient, so the
// returned input gradient is nil.
func (e *Embedding) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if e.lastIDs == nil {
		return nil, fmt.Errorf("embedding %q: backward called before forward", e.name)
	}
	if !grad.Shape().Equal(e.lastShape) {
		return nil, tensor.NewShapeError("Embedding.Backward", "gradient does not match forward output", grad.Shape(), e.lastShape)
	}
	rows, err := tensor.Reshape(grad, tensor.Shape{len(e.lastIDs), e.dim})
	if err != nil {
		return nil, err
	}
	if err := e.AccumulateGradient(e.lastIDs, rows); err != nil {
		return nil, err
	}
	e.lastIDs = nil
	return nil, nil
}

func (e *Embedding) checkIDs(ids []int) error {
	for _, id := range ids {
		if id < 0 || id >= e.vocab {
			return &RangeError{Table: e.name, ID: id, Size: e.vocab, Value: float64(id)}
		}
	}
	return nil
}
