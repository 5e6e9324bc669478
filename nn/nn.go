// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers, parameters and losses of embednet.
//
// # Overview
//
// The layer set is closed: Dense, Embedding, Conv1D, GlobalMaxPool1D,
// Dropout, Concatenate, Flatten, ReLU and Sigmoid. Every layer caches what it
// needs during Forward and consumes it in Backward.
//
// Embedding tables are the core building block. They map integer ids to
// dense vectors and accumulate gradients sparsely: only rows seen in a batch
// carry gradient, and only those rows are updated by the optimizer.
//
//	emb, err := nn.NewEmbedding("user_embedding", numUsers, 8, rng)
//	vecs, err := emb.Lookup([]int{3, 1, 3}) // (3, 8)
//
// Out-of-range ids fail with *RangeError (matches ErrRange); invalid
// hyperparameters fail with *ConfigError (matches ErrConfig).
package nn

import (
	"math/rand"

	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
)

// Layer is implemented by every layer type.
type Layer = nn.Layer

// Kind identifies a layer type.
type Kind = nn.Kind

// Mode selects training or evaluation behavior. The zero value is evaluation.
type Mode = nn.Mode

// Training returns a training Mode drawing dropout masks from rng.
func Training(rng *rand.Rand) Mode { return nn.Training(rng) }

// Parameter is a trainable tensor with its gradient.
type Parameter = nn.Parameter

// SparseGrad accumulates gradient rows for an embedding table.
type SparseGrad = nn.SparseGrad

// Updater applies one optimizer update to a parameter.
type Updater = nn.Updater

// Errors

// RangeError reports an embedding id outside the table.
type RangeError = nn.RangeError

// ConfigError reports an invalid hyperparameter.
type ConfigError = nn.ConfigError

// Sentinel errors.
var (
	ErrRange  = nn.ErrRange
	ErrConfig = nn.ErrConfig
)

// Layers

// Embedding maps integer ids to dense vectors.
type Embedding = nn.Embedding

// NewEmbedding creates a (vocab, dim) table initialized from U(-0.05, 0.05).
func NewEmbedding(name string, vocab, dim int, rng *rand.Rand) (*Embedding, error) {
	return nn.NewEmbedding(name, vocab, dim, rng)
}

// NewEmbeddingWithWeight wraps an existing (vocab, dim) table.
func NewEmbeddingWithWeight(name string, weight *tensor.Tensor) (*Embedding, error) {
	return nn.NewEmbeddingWithWeight(name, weight)
}

// Dense is a fully connected layer.
type Dense = nn.Dense

// NewDense creates a Dense layer with Xavier-initialized kernel and zero bias.
func NewDense(name string, inFeatures, outFeatures int, rng *rand.Rand) (*Dense, error) {
	return nn.NewDense(name, inFeatures, outFeatures, rng)
}

// Conv1D is a valid-padding, stride-1 temporal convolution.
type Conv1D = nn.Conv1D

// NewConv1D creates a Conv1D layer.
func NewConv1D(name string, kernelSize, channels, filters int, rng *rand.Rand) (*Conv1D, error) {
	return nn.NewConv1D(name, kernelSize, channels, filters, rng)
}

// GlobalMaxPool1D takes the maximum over the time dimension.
type GlobalMaxPool1D = nn.GlobalMaxPool1D

// NewGlobalMaxPool1D creates a global max pooling layer.
func NewGlobalMaxPool1D(name string) *GlobalMaxPool1D { return nn.NewGlobalMaxPool1D(name) }

// Dropout zeroes activations with probability p during training.
type Dropout = nn.Dropout

// NewDropout creates a Dropout layer; p must be in [0, 1).
func NewDropout(name string, p float64) (*Dropout, error) { return nn.NewDropout(name, p) }

// Concatenate joins branch outputs along the feature dimension.
type Concatenate = nn.Concatenate

// NewConcatenate creates a Concatenate layer.
func NewConcatenate(name string) *Concatenate { return nn.NewConcatenate(name) }

// Flatten collapses all non-batch dimensions.
type Flatten = nn.Flatten

// NewFlatten creates a Flatten layer.
func NewFlatten(name string) *Flatten { return nn.NewFlatten(name) }

// ReLU is max(0, x).
type ReLU = nn.ReLU

// NewReLU creates a ReLU activation.
func NewReLU(name string) *ReLU { return nn.NewReLU(name) }

// Sigmoid is 1 / (1 + exp(-x)).
type Sigmoid = nn.Sigmoid

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid(name string) *Sigmoid { return nn.NewSigmoid(name) }

// Losses

// Loss computes a scalar loss and its gradient.
type Loss = nn.Loss

// MSELoss is the mean squared error.
type MSELoss = nn.MSELoss

// NewMSELoss creates a mean squared error loss.
func NewMSELoss() *MSELoss { return nn.NewMSELoss() }

// BCELoss is binary cross-entropy on probabilities.
type BCELoss = nn.BCELoss

// NewBCELoss creates a binary cross-entropy loss.
func NewBCELoss() *BCELoss { return nn.NewBCELoss() }

// BinaryAccuracy returns the fraction of predictions on the right side of 0.5.
func BinaryAccuracy(pred, target *tensor.Tensor) float64 { return nn.BinaryAccuracy(pred, target) }
