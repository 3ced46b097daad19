package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error the engine hit while driving collaborators or
// the journal. The tick that observed it still completes.
type RuntimeError struct {
	Code      RuntimeErrorCode
	Message   string
	ProcessID string
	Err       error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCollaboratorFailed: a collaborator call failed on every retry.
	ErrCodeCollaboratorFailed RuntimeErrorCode = "COLLABORATOR_FAILED"

	// ErrCodeQuotaExceeded: a process used up its collaborator dispatches.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeJournalFailed: an event or snapshot could not be persisted.
	ErrCodeJournalFailed RuntimeErrorCode = "JOURNAL_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ProcessID != "" {
		msg += fmt.Sprintf(" (process=%s)", e.ProcessID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsQuotaError returns true if err is a quota exceeded error.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var de *DispatchesExceededError
	return errors.As(err, &de)
}

// IsCollaboratorError returns true if err is a failed collaborator call.
func IsCollaboratorError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeCollaboratorFailed
}

func collaboratorError(processID, op string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeCollaboratorFailed,
		Message:   op + " failed",
		ProcessID: processID,
		Err:       err,
	}
}

func quotaError(processID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeQuotaExceeded,
		Message:   "completion not dispatched",
		ProcessID: processID,
		Err:       err,
	}
}

func journalError(what string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeJournalFailed,
		Message: what,
		Err:     err,
	}
}
