package engine

import "fmt"

// DefaultMaxDispatches bounds collaborator requests per process.
const DefaultMaxDispatches = 3

// QuotaEnforcer counts collaborator dispatches per process. A failed call
// is re-dispatched on a later tick until the process runs out of quota.
type QuotaEnforcer struct {
	max  int
	used map[string]int
}

// NewQuotaEnforcer creates an enforcer allowing max dispatches per process.
func NewQuotaEnforcer(max int) *QuotaEnforcer {
	return &QuotaEnforcer{max: max, used: make(map[string]int)}
}

// Check records one dispatch for processID and returns
// DispatchesExceededError once the limit is passed.
func (q *QuotaEnforcer) Check(processID string) error {
	q.used[processID]++
	if n := q.used[processID]; n > q.max {
		return &DispatchesExceededError{ProcessID: processID, Dispatches: n, Limit: q.max}
	}
	return nil
}

// Forget drops the counter for a finished process.
func (q *QuotaEnforcer) Forget(processID string) {
	delete(q.used, processID)
}

// DispatchesExceededError is returned when a process has used up its
// collaborator dispatches.
type DispatchesExceededError struct {
	ProcessID  string
	Dispatches int
	Limit      int
}

// Error implements the error interface.
func (e *DispatchesExceededError) Error() string {
	return fmt.Sprintf("process %s exceeded collaborator quota: %d dispatches > %d limit",
		e.ProcessID, e.Dispatches, e.Limit)
}
