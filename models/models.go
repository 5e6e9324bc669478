// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models provides the two reference embedding architectures.
//
// # Recommender
//
// Predicts a rating from a (user, item) pair. Each id is looked up in its own
// embedding table; the two vectors are concatenated and passed through a
// dense head.
//
//	model, err := models.NewRecommender(models.RecommenderConfig{
//	    NumUsers:     943,
//	    NumItems:     1682,
//	    EmbeddingDim: 8,
//	    HiddenUnits:  []int{32},
//	}, rand.New(rand.NewSource(1)))
//
// # Classifier
//
// Predicts a probability from a padded token sequence: embedding, Conv1D,
// global max pooling and a sigmoid output.
package models

import (
	"math/rand"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/models"
)

// Model is a built network: input branches, an optional merge and a head.
type Model = graph.Model

// NamedParameter pairs a parameter with its stable name.
type NamedParameter = graph.NamedParameter

// RecommenderConfig configures NewRecommender.
type RecommenderConfig = models.RecommenderConfig

// NewRecommender builds the latent-factor rating model.
func NewRecommender(cfg RecommenderConfig, rng *rand.Rand) (*Model, error) {
	return models.NewRecommender(cfg, rng)
}

// ClassifierConfig configures NewClassifier.
type ClassifierConfig = models.ClassifierConfig

// NewClassifier builds the convolutional sequence classifier.
func NewClassifier(cfg ClassifierConfig, rng *rand.Rand) (*Model, error) {
	return models.NewClassifier(cfg, rng)
}
