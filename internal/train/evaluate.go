package train

import (
	"fmt"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
)

// Metrics is the result of Evaluate.
type Metrics struct {
	Loss        float64
	Accuracy    float64 // Binary cross-entropy only
	HasAccuracy bool
	Examples    int
}

// Predict runs the model in evaluation mode (dropout disabled) and returns the
// outputs for every example, in input order. batchSize <= 0 means one batch.
func Predict(model *graph.Model, inputs []*tensor.Tensor, batchSize int) (*tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("predict: no inputs")
	}
	n := inputs[0].Dim(0)
	if batchSize <= 0 {
		batchSize = n
	}

	var out *tensor.Tensor
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		batch := make([]*tensor.Tensor, len(inputs))
		for i, x := range inputs {
			b, err := tensor.SliceRows(x, start, end)
			if err != nil {
				return nil, err
			}
			batch[i] = b
		}

		pred, err := model.Forward(batch, nn.Mode{})
		if err != nil {
			return nil, fmt.Errorf("predict rows [%d, %d): %w", start, end, err)
		}
		if out == nil {
			out = tensor.Zeros(pred.Shape().Example().WithBatch(n))
		}
		for r := 0; r < end-start; r++ {
			copy(out.Row(start+r), pred.Row(r))
		}
	}
	return out, nil
}

// Evaluate computes the loss (and accuracy, for binary cross-entropy) over ds
// in evaluation mode. No gradients are accumulated and no parameter changes.
func Evaluate(model *graph.Model, ds *Dataset, loss nn.Loss, batchSize int) (Metrics, error) {
	if ds == nil || ds.Len() == 0 {
		return Metrics{}, fmt.Errorf("evaluate: empty dataset")
	}
	_, classify := loss.(*nn.BCELoss)

	pred, err := Predict(model, ds.Inputs, batchSize)
	if err != nil {
		return Metrics{}, err
	}

	// Losses average per element, so the size-weighted mean over batches equals
	// one Compute over the whole set.
	value, _, err := loss.Compute(pred, ds.Targets)
	if err != nil {
		return Metrics{}, err
	}
	m := Metrics{Loss: value, Examples: ds.Len(), HasAccuracy: classify}
	if classify {
		m.Accuracy = nn.BinaryAccuracy(pred, ds.Targets)
	}
	return m, nil
}
