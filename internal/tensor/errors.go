package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShape is the sentinel matched by every ShapeError.
//
//	if errors.Is(err, tensor.ErrShape) { ... }
var ErrShape = errors.New("shape mismatch")

// ShapeError reports operands whose shapes are incompatible for an operation.
// Shape errors are never recovered from; they indicate a wiring bug in the caller.
type ShapeError struct {
	Op     string  // Operation that failed (e.g., "MatMul", "Reshape")
	Shapes []Shape // Offending operand shapes, in argument order
	Reason string  // Human readable details
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	parts := make([]string, len(e.Shapes))
	for i, s := range e.Shapes {
		parts[i] = s.String()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Op, ErrShape, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s [%s]", e.Op, ErrShape, e.Reason, strings.Join(parts, " vs "))
}

// Is makes errors.Is(err, ErrShape) succeed for any ShapeError.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// shapeErr is a small constructor used throughout the package.
func shapeErr(op, reason string, shapes ...Shape) error {
	cloned := make([]Shape, len(shapes))
	for i, s := range shapes {
		cloned[i] = s.Clone()
	}
	return &ShapeError{Op: op, Shapes: cloned, Reason: reason}
}

// NewShapeError builds a ShapeError for callers outside this package
// (layers validating their own inputs).
func NewShapeError(op, reason string, shapes ...Shape) error {
	return shapeErr(op, reason, shapes...)
}
