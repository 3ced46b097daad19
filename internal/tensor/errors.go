package tensor

import (
	"errors"
	"fmt"
)

// ShapeError reports operands whose shapes are incompatible with an
// operation.
type ShapeError struct {
	Op    string
	Left  []int
	Right []int
	// Reason is optional extra detail ("need 2 dimensions", ...).
	Reason string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("%s: shape mismatch %v vs %v", e.Op, e.Left, e.Right)
	if e.Right == nil {
		msg = fmt.Sprintf("%s: bad shape %v", e.Op, e.Left)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsShapeError returns true if err is (or wraps) a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

func mismatch(op string, a, b Tensor, reason string) *ShapeError {
	return &ShapeError{Op: op, Left: a.Shape(), Right: b.Shape(), Reason: reason}
}
