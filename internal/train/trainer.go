// Package train drives mini-batch training, evaluation and prediction.
//
// One epoch shuffles the training indices once with the configured generator,
// slices them into BatchSize batches (the last may be smaller) and for each
// batch runs ZeroGrad → Forward (training mode) → Loss → Backward → optimizer
// step. The epoch loss is the size-weighted mean of the batch losses, so a
// ragged tail counts exactly as much as its examples.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/optim"
)

// Config controls a training run.
type Config struct {
	Epochs    int             // Number of passes over the training set
	BatchSize int             // Examples per batch (default: 32)
	Loss      nn.Loss         // Required
	Optimizer optim.Optimizer // Default: Adam with default hyperparameters

	// RNG drives shuffling and dropout. If nil, one is seeded from Seed.
	RNG  *rand.Rand
	Seed int64

	// Logger receives per-epoch metrics and warnings. Default: discard.
	Logger *slog.Logger

	// OnWarning is called for every NumericInstabilityWarning. Returning an
	// error aborts the run with that error.
	OnWarning func(NumericInstabilityWarning) error

	// OnEpoch is called after every epoch. Returning an error stops training
	// and Train returns that error with the history so far.
	OnEpoch func(EpochMetrics) error
}

// DefaultBatchSize is used when Config.BatchSize is zero.
const DefaultBatchSize = 32

func (c *Config) withDefaults() (Config, error) {
	cfg := *c
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Epochs <= 0 {
		return cfg, &nn.ConfigError{Layer: "trainer", Field: "epochs", Value: cfg.Epochs, Reason: "must be > 0"}
	}
	if cfg.BatchSize < 0 {
		return cfg, &nn.ConfigError{Layer: "trainer", Field: "batch_size", Value: cfg.BatchSize, Reason: "must be > 0"}
	}
	if cfg.Loss == nil {
		return cfg, &nn.ConfigError{Layer: "trainer", Field: "loss", Value: nil, Reason: "required"}
	}
	if cfg.Optimizer == nil {
		opt, err := optim.NewAdam(optim.AdamConfig{})
		if err != nil {
			return cfg, err
		}
		cfg.Optimizer = opt
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(cfg.Seed))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg, nil
}

// EpochMetrics summarizes one epoch.
type EpochMetrics struct {
	Epoch    int     // 1-based
	Loss     float64 // Size-weighted mean training loss
	Accuracy float64 // Training accuracy (binary cross-entropy only)

	HasValidation bool
	ValLoss       float64
	ValAccuracy   float64 // Binary cross-entropy only

	Warnings []NumericInstabilityWarning
	Duration time.Duration
}

// History is the per-epoch metric log of a run.
type History struct {
	Epochs []EpochMetrics
}

// Losses returns the training loss of every epoch.
func (h *History) Losses() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.Loss
	}
	return out
}

// Last returns the metrics of the final epoch.
func (h *History) Last() EpochMetrics {
	if len(h.Epochs) == 0 {
		return EpochMetrics{}
	}
	return h.Epochs[len(h.Epochs)-1]
}

// Train runs cfg.Epochs epochs over trainSet. valSet may be nil.
func Train(model *graph.Model, trainSet, valSet *Dataset, cfg Config) (*History, error) {
	return TrainContext(context.Background(), model, trainSet, valSet, cfg)
}

// TrainContext is Train with cancellation. ctx is checked between epochs
// only; a batch in progress always completes.
func TrainContext(ctx context.Context, model *graph.Model, trainSet, valSet *Dataset, cfg Config) (*History, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if trainSet == nil || trainSet.Len() == 0 {
		return nil, fmt.Errorf("train: empty training set")
	}

	// Optimizer state belongs to a single run.
	c.Optimizer.Reset()

	_, classify := c.Loss.(*nn.BCELoss)
	history := &History{}

	for epoch := 1; epoch <= c.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		start := time.Now()
		metrics, err := runEpoch(model, trainSet, &c, epoch, classify)
		if err != nil {
			return history, err
		}

		if valSet != nil {
			val, err := Evaluate(model, valSet, c.Loss, c.BatchSize)
			if err != nil {
				return history, fmt.Errorf("epoch %d validation: %w", epoch, err)
			}
			metrics.HasValidation = true
			metrics.ValLoss = val.Loss
			metrics.ValAccuracy = val.Accuracy
		}
		metrics.Duration = time.Since(start)
		history.Epochs = append(history.Epochs, metrics)

		logEpoch(c.Logger, metrics, classify)

		if c.OnEpoch != nil {
			if err := c.OnEpoch(metrics); err != nil {
				return history, err
			}
		}
	}
	return history, nil
}

func runEpoch(model *graph.Model, ds *Dataset, c *Config, epoch int, classify bool) (EpochMetrics, error) {
	metrics := EpochMetrics{Epoch: epoch}
	mode := nn.Training(c.RNG)

	order := c.RNG.Perm(ds.Len())
	var lossSum, correct float64

	for b, idx := range batches(order, c.BatchSize) {
		inputs, targets, err := ds.Batch(idx)
		if err != nil {
			return metrics, err
		}

		model.ZeroGrad()
		pred, err := model.Forward(inputs, mode)
		if err != nil {
			return metrics, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
		}
		loss, grad, err := c.Loss.Compute(pred, targets)
		if err != nil {
			return metrics, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
		}
		if err := model.Backward(grad); err != nil {
			return metrics, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
		}

		if err := checkFinite(model, c, &metrics, epoch, b, loss); err != nil {
			return metrics, err
		}

		if err := model.Step(c.Optimizer); err != nil {
			return metrics, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
		}

		n := float64(len(idx))
		lossSum += loss * n
		if classify {
			correct += nn.BinaryAccuracy(pred, targets) * n
		}
	}

	total := float64(ds.Len())
	metrics.Loss = lossSum / total
	if classify {
		metrics.Accuracy = correct / total
	}
	return metrics, nil
}

// checkFinite raises a warning for a non-finite loss and for every parameter
// with a non-finite gradient.
func checkFinite(model *graph.Model, c *Config, metrics *EpochMetrics, epoch, batch int, loss float64) error {
	var warnings []NumericInstabilityWarning
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		warnings = append(warnings, NumericInstabilityWarning{
			Epoch: epoch, Batch: batch, Quantity: QuantityLoss, Value: loss,
		})
	}
	for _, name := range model.NonFiniteGradients() {
		warnings = append(warnings, NumericInstabilityWarning{
			Epoch: epoch, Batch: batch, Quantity: QuantityGradient, Parameter: name,
		})
	}

	for _, w := range warnings {
		metrics.Warnings = append(metrics.Warnings, w)
		c.Logger.Warn("numeric instability", "epoch", w.Epoch, "batch", w.Batch,
			"quantity", w.Quantity, "parameter", w.Parameter)
		if c.OnWarning != nil {
			if err := c.OnWarning(w); err != nil {
				return fmt.Errorf("aborted on %s: %w", w, err)
			}
		}
	}
	return nil
}

func logEpoch(logger *slog.Logger, m EpochMetrics, classify bool) {
	attrs := []any{"epoch", m.Epoch, "loss", m.Loss, "duration", m.Duration}
	if classify {
		attrs = append(attrs, "accuracy", m.Accuracy)
	}
	if m.HasValidation {
		attrs = append(attrs, "val_loss", m.ValLoss)
		if classify {
			attrs = append(attrs, "val_accuracy", m.ValAccuracy)
		}
	}
	logger.Info("epoch complete", attrs...)
}
