package kernel

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no process has the requested id.
var ErrNotFound = errors.New("process not found")

// IsNotFound returns true if err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// TransitionError reports a lifecycle operation that is not valid from the
// process's current state. The process is left unchanged.
type TransitionError struct {
	ProcessID string
	Op        string
	From      State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s process %s in state %s", e.Op, e.ProcessID, e.From)
}

// IsTransitionError returns true if err is (or wraps) a TransitionError.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
