package train

import "fmt"

// NumericInstabilityWarning reports a non-finite loss or gradient.
//
// It is a value, not an error: training continues unless Config.OnWarning
// returns an error, in which case the run aborts with that error.
type NumericInstabilityWarning struct {
	Epoch     int     // 1-based epoch
	Batch     int     // 0-based batch index within the epoch
	Quantity  string  // "loss" or "gradient"
	Parameter string  // Parameter name for gradient warnings
	Value     float64 // Offending loss value (loss warnings only)
}

// String implements fmt.Stringer.
func (w NumericInstabilityWarning) String() string {
	if w.Quantity == QuantityGradient {
		return fmt.Sprintf("epoch %d batch %d: non-finite gradient in %s", w.Epoch, w.Batch, w.Parameter)
	}
	return fmt.Sprintf("epoch %d batch %d: non-finite loss %v", w.Epoch, w.Batch, w.Value)
}

// Warning quantities.
const (
	QuantityLoss     = "loss"
	QuantityGradient = "gradient"
)
