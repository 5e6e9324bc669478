package train

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/embednet/internal/tensor"
)

// Dataset holds aligned model inputs and targets, all in memory.
//
// Inputs[i] has shape (N, ...) for the i-th model input; Targets has shape
// (N, 1). Row n of every tensor belongs to example n.
type Dataset struct {
	Inputs  []*tensor.Tensor
	Targets *tensor.Tensor
}

// NewDataset validates that every tensor has the same number of rows.
func NewDataset(inputs []*tensor.Tensor, targets *tensor.Tensor) (*Dataset, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("dataset: at least one input required")
	}
	if targets == nil {
		return nil, fmt.Errorf("dataset: targets required")
	}
	n := targets.Dim(0)
	for i, x := range inputs {
		if x.Dim(0) != n {
			return nil, tensor.NewShapeError("NewDataset",
				fmt.Sprintf("input %d has %d rows, targets have %d", i, x.Dim(0), n), x.Shape(), targets.Shape())
		}
	}
	return &Dataset{Inputs: inputs, Targets: targets}, nil
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	return d.Targets.Dim(0)
}

// Batch gathers the examples listed in idx, in order.
func (d *Dataset) Batch(idx []int) ([]*tensor.Tensor, *tensor.Tensor, error) {
	inputs := make([]*tensor.Tensor, len(d.Inputs))
	for i, x := range d.Inputs {
		b, err := tensor.GatherRows(x, idx)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = b
	}
	targets, err := tensor.GatherRows(d.Targets, idx)
	if err != nil {
		return nil, nil, err
	}
	return inputs, targets, nil
}

// Subset returns a new Dataset holding the examples listed in idx.
func (d *Dataset) Subset(idx []int) (*Dataset, error) {
	inputs, targets, err := d.Batch(idx)
	if err != nil {
		return nil, err
	}
	return &Dataset{Inputs: inputs, Targets: targets}, nil
}

// Split shuffles the examples with rng and holds out round(fraction·N) of them
// for validation. Both halves must end up non-empty.
func Split(d *Dataset, fraction float64, rng *rand.Rand) (trainSet, valSet *Dataset, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("split: fraction %v must be in (0, 1)", fraction)
	}
	n := d.Len()
	nVal := int(math.Round(fraction * float64(n)))
	if nVal == 0 || nVal == n {
		return nil, nil, fmt.Errorf("split: fraction %v of %d examples leaves an empty side", fraction, n)
	}

	perm := rng.Perm(n)
	if valSet, err = d.Subset(perm[:nVal]); err != nil {
		return nil, nil, err
	}
	if trainSet, err = d.Subset(perm[nVal:]); err != nil {
		return nil, nil, err
	}
	return trainSet, valSet, nil
}

// batches slices order into consecutive chunks of size; the last chunk may be
// shorter.
func batches(order []int, size int) [][]int {
	var out [][]int
	for start := 0; start < len(order); start += size {
		out = append(out, order[start:min(start+size, len(order))])
	}
	return out
}
