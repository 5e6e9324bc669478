package optim

import (
	"math"

	"github.com/born-ml/embednet/internal/nn"
	"gonum.org/v1/gonum/floats"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Sparse parameters keep velocity only for rows that have been touched and
// update only the rows in the current SparseGrad.
//
// Example:
//
//	opt, err := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD struct {
	lr       float64
	momentum float64
	t        int

	velocities       map[*nn.Parameter][]float64
	sparseVelocities map[*nn.Parameter]*rowState
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) (*SGD, error) {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.LR < 0 || math.IsNaN(config.LR) {
		return nil, invalid("sgd", "lr", config.LR, "must be > 0")
	}
	if config.Momentum < 0 || config.Momentum >= 1 {
		return nil, invalid("sgd", "momentum", config.Momentum, "must be in [0, 1)")
	}

	s := &SGD{
		lr:       config.LR,
		momentum: config.Momentum,
	}
	s.Reset()
	return s, nil
}

// Tick advances the step counter. SGD's rule does not depend on it.
func (s *SGD) Tick() {
	s.t++
}

// Update applies the SGD rule to one parameter.
func (s *SGD) Update(p *nn.Parameter) error {
	values := p.Tensor().Data()

	if sg := p.Sparse(); sg != nil {
		vel, ok := s.sparseVelocities[p]
		if !ok {
			vel = newRowState(sg.Width())
			s.sparseVelocities[p] = vel
		}
		for _, r := range sg.Rows() {
			lo := r * sg.Width()
			s.apply(values[lo:lo+sg.Width()], sg.Row(r), vel.row(r))
		}
		return nil
	}

	vel, ok := s.velocities[p]
	if !ok {
		vel = make([]float64, len(values))
		s.velocities[p] = vel
	}
	s.apply(values, p.Grad().Data(), vel)
	return nil
}

func (s *SGD) apply(param, grad, vel []float64) {
	if s.momentum == 0 {
		floats.AddScaled(param, -s.lr, grad)
		return
	}
	floats.Scale(s.momentum, vel)
	floats.Add(vel, grad)
	floats.AddScaled(param, -s.lr, vel)
}

// Step performs a single optimization step over params.
func (s *SGD) Step(params []*nn.Parameter) error {
	return stepAll(s, params)
}

// Reset discards velocities.
func (s *SGD) Reset() {
	s.t = 0
	s.velocities = make(map[*nn.Parameter][]float64)
	s.sparseVelocities = make(map[*nn.Parameter]*rowState)
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR sets the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
