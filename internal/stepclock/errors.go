package stepclock

import (
	"errors"
	"fmt"
)

// RangeError reports a step or address component outside its cycle.
//
// Out-of-range steps are programmer errors: callers should not retry.
type RangeError struct {
	// What names the offending quantity ("absolute step", "stage", ...).
	What  string
	Value int
	Min   int
	Max   int
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

// IsRangeError returns true if err is (or wraps) a RangeError.
func IsRangeError(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}
