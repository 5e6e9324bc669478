// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training embednet models.
//
// # Overview
//
// This package contains:
//   - Adam: Adaptive Moment Estimation with bias correction
//   - SGD: Stochastic Gradient Descent with optional momentum
//
// Both update embedding tables lazily: only the rows that received gradient in
// the current batch change, and the moments of other rows are left alone.
//
// # Basic Usage
//
//	opt, err := optim.NewAdam(optim.AdamConfig{LR: 0.001})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// model.Step(opt) after every backward pass
package optim

import "github.com/born-ml/embednet/internal/optim"

// Optimizer is implemented by Adam and SGD.
type Optimizer = optim.Optimizer

// Adam (Adaptive Moment Estimation)

// Adam is the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam. Zero fields take the defaults
// lr=0.001, betas=(0.9, 0.999), eps=1e-8.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
//
// Example:
//
//	opt, err := optim.NewAdam(optim.AdamConfig{LR: 0.01})
func NewAdam(config AdamConfig) (*Adam, error) { return optim.NewAdam(config) }

// SGD (Stochastic Gradient Descent)

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	opt, err := optim.NewSGD(optim.SGDConfig{LR: 0.01, Momentum: 0.9})
func NewSGD(config SGDConfig) (*SGD, error) { return optim.NewSGD(config) }
