// Package optim implements the optimization algorithms used to train embednet models.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - Adam: Adaptive Moment Estimation with lazy sparse-row updates
//   - SGD: Stochastic Gradient Descent with momentum
//
// Optimizers are driven one parameter at a time. A training step calls Tick
// once, then Update for every parameter that received gradient in the batch.
// Sparse (embedding) parameters are updated only on the rows present in their
// SparseGrad; the rest of the table and its optimizer state stay untouched.
//
// Example usage:
//
//	opt, err := optim.NewAdam(optim.AdamConfig{LR: 0.01})
//	if err != nil {
//	    return err
//	}
//
//	for range epochs {
//	    model.ZeroGrad()
//	    // forward, loss, backward ...
//	    if err := model.Step(opt); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"github.com/born-ml/embednet/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Tick advances the optimizer's global step counter. Call once per batch,
	// before the batch's Update calls.
	Tick()

	// Update applies one step of the update rule to p using its accumulated
	// gradient. For sparse parameters only rows with buffered gradient change.
	Update(p *nn.Parameter) error

	// Step is Tick followed by Update on every parameter.
	Step(params []*nn.Parameter) error

	// Reset discards all optimizer state, as at the start of a fresh run.
	Reset()

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR changes the learning rate for subsequent updates.
	SetLR(lr float64)
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// stepAll is the shared Step implementation.
func stepAll(o Optimizer, params []*nn.Parameter) error {
	o.Tick()
	for _, p := range params {
		if err := o.Update(p); err != nil {
			return err
		}
	}
	return nil
}

// rowState lazily holds one optimizer buffer per touched row of a sparse
// parameter. Rows never touched have no entry, which is equivalent to zero.
type rowState struct {
	width int
	rows  map[int][]float64
}

func newRowState(width int) *rowState {
	return &rowState{width: width, rows: make(map[int][]float64)}
}

func (r *rowState) row(i int) []float64 {
	buf, ok := r.rows[i]
	if !ok {
		buf = make([]float64, r.width)
		r.rows[i] = buf
	}
	return buf
}

func invalid(component, field string, value any, reason string) error {
	return &nn.ConfigError{Layer: component, Field: field, Value: value, Reason: reason}
}

var (
	_ Optimizer = (*Adam)(nil)
	_ Optimizer = (*SGD)(nil)
)
