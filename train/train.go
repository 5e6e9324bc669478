// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs mini-batch training, evaluation and prediction.
//
// # Training Loop
//
//	ds, err := train.NewDataset([]*tensor.Tensor{users, items}, ratings)
//	trainSet, valSet, err := train.Split(ds, 0.2, rng)
//
//	history, err := train.Train(model, trainSet, valSet, train.Config{
//	    Epochs:    20,
//	    BatchSize: 32,
//	    Loss:      nn.NewMSELoss(),
//	    RNG:       rng,
//	})
//
// Every epoch shuffles the training set, runs forward and backward per batch
// and steps the optimizer. Non-finite losses or gradients produce
// NumericInstabilityWarning values rather than errors.
package train

import (
	"context"
	"math/rand"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
	"github.com/born-ml/embednet/internal/train"
)

// Config controls a training run.
type Config = train.Config

// Dataset holds aligned inputs and targets.
type Dataset = train.Dataset

// History is the per-epoch metric log of a run.
type History = train.History

// EpochMetrics summarizes one epoch.
type EpochMetrics = train.EpochMetrics

// Metrics is the result of Evaluate.
type Metrics = train.Metrics

// NumericInstabilityWarning reports a non-finite loss or gradient.
type NumericInstabilityWarning = train.NumericInstabilityWarning

// NewDataset validates that every tensor has the same number of rows.
func NewDataset(inputs []*tensor.Tensor, targets *tensor.Tensor) (*Dataset, error) {
	return train.NewDataset(inputs, targets)
}

// Split holds out round(fraction·N) shuffled examples for validation.
func Split(d *Dataset, fraction float64, rng *rand.Rand) (*Dataset, *Dataset, error) {
	return train.Split(d, fraction, rng)
}

// Train runs cfg.Epochs epochs over trainSet. valSet may be nil.
func Train(model *graph.Model, trainSet, valSet *Dataset, cfg Config) (*History, error) {
	return train.Train(model, trainSet, valSet, cfg)
}

// TrainContext is Train with cancellation between epochs.
func TrainContext(ctx context.Context, model *graph.Model, trainSet, valSet *Dataset, cfg Config) (*History, error) {
	return train.TrainContext(ctx, model, trainSet, valSet, cfg)
}

// Predict runs the model in evaluation mode.
func Predict(model *graph.Model, inputs []*tensor.Tensor, batchSize int) (*tensor.Tensor, error) {
	return train.Predict(model, inputs, batchSize)
}

// Evaluate computes loss (and accuracy for binary cross-entropy) over ds.
func Evaluate(model *graph.Model, ds *Dataset, loss nn.Loss, batchSize int) (Metrics, error) {
	return train.Evaluate(model, ds, loss, batchSize)
}
