// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package models_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/born-ml/embednet/models"
	"github.com/born-ml/embednet/nn"
	"github.com/born-ml/embednet/optim"
	"github.com/born-ml/embednet/tensor"
	"github.com/born-ml/embednet/train"
)

// TestPublicAPI trains a tiny recommender using only the public packages.
func TestPublicAPI(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	model, err := models.NewRecommender(models.RecommenderConfig{
		NumUsers:     3,
		NumItems:     2,
		EmbeddingDim: 2,
	}, rng)
	if err != nil {
		t.Fatalf("NewRecommender failed: %v", err)
	}

	users := tensor.MustFromSlice([]float64{0, 1, 2, 0, 1, 2}, tensor.Shape{6, 1})
	items := tensor.MustFromSlice([]float64{0, 0, 0, 1, 1, 1}, tensor.Shape{6, 1})
	ratings := tensor.MustFromSlice([]float64{1, 2, 3, 3, 2, 1}, tensor.Shape{6, 1})
	ds, err := train.NewDataset([]*tensor.Tensor{users, items}, ratings)
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}

	opt, err := optim.NewAdam(optim.AdamConfig{LR: 0.05})
	if err != nil {
		t.Fatalf("NewAdam failed: %v", err)
	}
	history, err := train.Train(model, ds, nil, train.Config{
		Epochs:    30,
		BatchSize: 2,
		Loss:      nn.NewMSELoss(),
		Optimizer: opt,
		RNG:       rng,
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	losses := history.Losses()
	if losses[len(losses)-1] >= losses[0] {
		t.Errorf("loss did not decrease: first %v, last %v", losses[0], losses[len(losses)-1])
	}

	pred, err := train.Predict(model, []*tensor.Tensor{users, items}, 4)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !pred.Shape().Equal(tensor.Shape{6, 1}) {
		t.Errorf("Predict shape = %v, want (6, 1)", pred.Shape())
	}

	bad := tensor.MustFromSlice([]float64{3}, tensor.Shape{1, 1})
	_, err = train.Predict(model, []*tensor.Tensor{bad, tensor.Zeros(tensor.Shape{1, 1})}, 0)
	if !errors.Is(err, nn.ErrRange) {
		t.Errorf("expected ErrRange for user id 3, got %v", err)
	}
}

func TestPublicConfigError(t *testing.T) {
	_, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize: 10, SeqLen: 2, EmbeddingDim: 2, KernelSize: 3, Filters: 1,
	}, rand.New(rand.NewSource(1)))
	var ce *nn.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Field != "kernel_size" {
		t.Errorf("Field = %q, want kernel_size", ce.Field)
	}
}
