package nn

import (
	"math"

	"github.com/born-ml/embednet/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Loss scores a batch of predictions and returns dLoss/dPredictions.
//
// Both losses average over every element, so the gradient is already scaled
// by 1/N and a batch's loss is comparable across batch sizes.
type Loss interface {
	// Name identifies the loss in logs and metrics.
	Name() string

	// Compute returns the mean loss and its gradient with respect to pred.
	// pred and target must have the same shape.
	Compute(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error)
}

// MSELoss computes Mean Squared Error.
//
//	Loss = mean((pred - target)²)
//	dL/dpred = 2(pred - target)/N
//
// Used for regression targets such as ratings.
type MSELoss struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Name returns "mse".
func (*MSELoss) Name() string { return "mse" }

// Compute implements Loss.
func (*MSELoss) Compute(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	diff, err := tensor.Sub(pred, target)
	if err != nil {
		return 0, nil, err
	}
	d := diff.Data()
	n := float64(len(d))
	loss := floats.Dot(d, d) / n

	floats.Scale(2/n, d)
	return loss, diff, nil
}

// BCEProbabilityClip bounds predicted probabilities away from 0 and 1 so that
// the log terms stay finite.
const BCEProbabilityClip = 1e-7

// BCELoss computes binary cross-entropy on probabilities (sigmoid outputs).
//
//	Loss = -mean(t·log(p) + (1-t)·log(1-p))
//	dL/dp = (p - t) / (p(1-p)) / N
//
// p is clipped to [1e-7, 1-1e-7] in both the loss and the gradient.
type BCELoss struct{}

// NewBCELoss creates a new binary cross-entropy loss.
func NewBCELoss() *BCELoss {
	return &BCELoss{}
}

// Name returns "binary_crossentropy".
func (*BCELoss) Name() string { return "binary_crossentropy" }

// Compute implements Loss.
func (*BCELoss) Compute(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if !pred.Shape().Equal(target.Shape()) {
		return 0, nil, tensor.NewShapeError("BCELoss", "predictions and targets differ", pred.Shape(), target.Shape())
	}

	p := pred.Data()
	t := target.Data()
	n := float64(len(p))
	grad := tensor.Zeros(pred.Shape())
	g := grad.Data()

	var sum float64
	for i := range p {
		pi := math.Min(math.Max(p[i], BCEProbabilityClip), 1-BCEProbabilityClip)
		sum -= t[i]*math.Log(pi) + (1-t[i])*math.Log(1-pi)
		g[i] = (pi - t[i]) / (pi * (1 - pi)) / n
	}
	return sum / n, grad, nil
}

// BinaryAccuracy returns the fraction of predictions on the same side of 0.5
// as their {0, 1} target.
func BinaryAccuracy(pred, target *tensor.Tensor) float64 {
	p := pred.Data()
	t := target.Data()
	if len(p) == 0 {
		return 0
	}
	correct := 0
	for i := range p {
		if (p[i] >= 0.5) == (t[i] >= 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(p))
}
