package harness

import (
	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/kernel"
)

// TraceEvent is one recorded notification. Sequence numbers are left out
// so traces stay comparable when the recorded kinds change.
type TraceEvent struct {
	Tick      int64  `json:"tick"`
	Kind      string `json:"kind"`
	ProcessID string `json:"process_id,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	State     string `json:"state,omitempty"`
	Step      int    `json:"step,omitempty"`
	Triad     []int  `json:"triad,omitempty"`
	Cycle     int64  `json:"cycle,omitempty"`
	Coupling  string `json:"coupling,omitempty"`
	StreamID  int    `json:"stream_id,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Focus     string `json:"focus,omitempty"`
}

func traceEventFrom(ev event.Event) TraceEvent {
	return TraceEvent{
		Tick:      ev.Tick,
		Kind:      string(ev.Kind),
		ProcessID: ev.ProcessID,
		ParentID:  ev.ParentID,
		Priority:  ev.Priority,
		State:     ev.State,
		Step:      ev.Step,
		Triad:     ev.Triad,
		Cycle:     ev.Cycle,
		Coupling:  ev.Coupling,
		StreamID:  ev.StreamID,
		Pattern:   ev.Pattern,
		Focus:     ev.Focus,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the recorded notifications in publication order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Aliases maps scenario aliases to process ids.
	Aliases map[string]string `json:"aliases,omitempty"`

	// Processes is the final process table keyed by id.
	Processes map[string]kernel.Process `json:"processes,omitempty"`

	Metrics kernel.Metrics `json:"metrics"`
	Ticks   int64          `json:"ticks"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Aliases:   make(map[string]string),
		Processes: make(map[string]kernel.Process),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Resolve maps an alias to its process id. Unknown names are taken as ids.
func (r *Result) Resolve(name string) string {
	if id, ok := r.Aliases[name]; ok {
		return id
	}
	return name
}
