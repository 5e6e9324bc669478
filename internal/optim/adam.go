package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/embednet/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Dense parameters update every element each step. Sparse parameters update
// only the rows present in their SparseGrad ("lazy" Adam): the moments of an
// untouched row are neither decayed nor applied, so the row stays bit-identical.
// Bias correction always uses the global step t.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	opt, err := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int // Timestep for bias correction

	m       map[*nn.Parameter][]float64 // First moment estimates (dense)
	v       map[*nn.Parameter][]float64 // Second moment estimates (dense)
	sparseM map[*nn.Parameter]*rowState
	sparseV map[*nn.Parameter]*rowState
}

// AdamConfig holds configuration for Adam optimizer.
// Zero fields take the defaults, so a beta of exactly 0 cannot be requested.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// Default Adam hyperparameters.
const (
	DefaultAdamLR    = 0.001
	DefaultAdamBeta1 = 0.9
	DefaultAdamBeta2 = 0.999
	DefaultAdamEps   = 1e-8
)

// WithDefaults returns c with zero fields replaced by the defaults.
func (c AdamConfig) WithDefaults() AdamConfig {
	if c.LR == 0 {
		c.LR = DefaultAdamLR
	}
	if c.Betas[0] == 0 {
		c.Betas[0] = DefaultAdamBeta1
	}
	if c.Betas[1] == 0 {
		c.Betas[1] = DefaultAdamBeta2
	}
	if c.Eps == 0 {
		c.Eps = DefaultAdamEps
	}
	return c
}

// Validate checks the hyperparameters after defaults are applied.
func (c AdamConfig) Validate() error {
	if c.LR <= 0 || math.IsNaN(c.LR) {
		return invalid("adam", "lr", c.LR, "must be > 0")
	}
	for i, b := range c.Betas {
		if !(b > 0 && b < 1) {
			return invalid("adam", fmt.Sprintf("beta%d", i+1), b, "must be in (0, 1)")
		}
	}
	if c.Eps <= 0 {
		return invalid("adam", "eps", c.Eps, "must be > 0")
	}
	return nil
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(config AdamConfig) (*Adam, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
	a.Reset()
	return a, nil
}

// Tick increments the timestep.
func (a *Adam) Tick() {
	a.t++
}

// GetTimestep returns the number of Tick calls since the last Reset.
func (a *Adam) GetTimestep() int {
	return a.t
}

// Update applies the Adam rule to one parameter.
func (a *Adam) Update(p *nn.Parameter) error {
	if a.t == 0 {
		return fmt.Errorf("adam: Update on %q before Tick", p.Name())
	}

	// bias_correction1 = 1 - beta1^t
	// bias_correction2 = 1 - beta2^t
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	values := p.Tensor().Data()

	if sg := p.Sparse(); sg != nil {
		m, ok := a.sparseM[p]
		if !ok {
			m = newRowState(sg.Width())
			a.sparseM[p] = m
			a.sparseV[p] = newRowState(sg.Width())
		}
		v := a.sparseV[p]
		for _, r := range sg.Rows() {
			lo := r * sg.Width()
			a.apply(values[lo:lo+sg.Width()], sg.Row(r), m.row(r), v.row(r), bc1, bc2)
		}
		return nil
	}

	m, ok := a.m[p]
	if !ok {
		m = make([]float64, len(values))
		a.m[p] = m
		a.v[p] = make([]float64, len(values))
	}
	a.apply(values, p.Grad().Data(), m, a.v[p], bc1, bc2)
	return nil
}

// apply updates moments and parameters element-wise.
func (a *Adam) apply(param, grad, m, v []float64, bc1, bc2 float64) {
	for i, g := range grad {
		m[i] = a.beta1*m[i] + (1-a.beta1)*g
		v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
		mHat := m[i] / bc1
		vHat := v[i] / bc2
		param[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// Step performs a single optimization step over params.
func (a *Adam) Step(params []*nn.Parameter) error {
	return stepAll(a, params)
}

// Reset discards moments and sets the timestep to zero.
func (a *Adam) Reset() {
	a.t = 0
	a.m = make(map[*nn.Parameter][]float64)
	a.v = make(map[*nn.Parameter][]float64)
	a.sparseM = make(map[*nn.Parameter]*rowState)
	a.sparseV = make(map[*nn.Parameter]*rowState)
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR sets the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}
