package nn

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below.
var (
	ErrRange  = errors.New("id out of range")
	ErrConfig = errors.New("invalid configuration")
)

// RangeError reports an embedding lookup id outside [0, Size).
// Ids are never clamped; the lookup fails instead.
type RangeError struct {
	Table  string  // Embedding table name
	ID     int     // Offending id, or -1 when Value is not an integer
	Size   int     // Vocabulary size of the table
	Value  float64 // Raw input value the id was read from
	Detail string  // Optional extra context
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("embedding %q: %s: %v (%s)", e.Table, ErrRange, e.Value, e.Detail)
	}
	return fmt.Sprintf("embedding %q: %s: id %d not in [0, %d)", e.Table, ErrRange, e.ID, e.Size)
}

// Is makes errors.Is(err, ErrRange) succeed for any RangeError.
func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}

// ConfigError reports an invalid hyperparameter, detected when a layer or
// model is built and before any parameters are allocated.
type ConfigError struct {
	Layer  string // Layer or component name
	Field  string // Offending field (e.g., "dim", "p")
	Value  any    // Offending value
	Reason string // Constraint that was violated
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s=%v: %s", e.Layer, ErrConfig, e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrConfig) succeed for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func positive(layer, field string, v int) error {
	if v <= 0 {
		return &ConfigError{Layer: layer, Field: field, Value: v, Reason: "must be > 0"}
	}
	return nil
}
