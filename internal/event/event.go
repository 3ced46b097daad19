package event

import "fmt"

// Kind is the closed set of notification kinds.
type Kind string

const (
	// Kernel notifications.
	KindProcessCreated    Kind = "process_created"
	KindStepAdvance       Kind = "step_advance"
	KindTriadConvergence  Kind = "triad_convergence"
	KindCycleComplete     Kind = "cycle_complete"
	KindCouplingActivated Kind = "coupling_activated"

	// Stream notifications.
	KindPatternRecognized Kind = "pattern_recognized"
	KindAttentionShifted  Kind = "attention_shifted"
)

// Kinds lists every valid Kind in declaration order.
var Kinds = []Kind{
	KindProcessCreated,
	KindStepAdvance,
	KindTriadConvergence,
	KindCycleComplete,
	KindCouplingActivated,
	KindPatternRecognized,
	KindAttentionShifted,
}

// Valid reports whether k belongs to the vocabulary.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// ParseKind converts a string to a Kind, rejecting unknown names.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown event kind %q", s)
	}
	return k, nil
}

// Event is one notification. Kind selects which of the optional fields are
// meaningful:
//
//	process_created     ProcessID, Priority, ParentID (forks)
//	step_advance        ProcessID, Step, State
//	triad_convergence   Triad
//	cycle_complete      Cycle
//	coupling_activated  ProcessID, Coupling, Triad
//	pattern_recognized  StreamID, Pattern, Confidence
//	attention_shifted   StreamID, Focus
//
// Seq and Tick are always set by the publisher.
type Event struct {
	Seq  int64 `json:"seq"`
	Tick int64 `json:"tick"`
	Kind Kind  `json:"kind"`

	ProcessID  string  `json:"process_id,omitempty"`
	ParentID   string  `json:"parent_id,omitempty"`
	Priority   int     `json:"priority,omitempty"`
	State      string  `json:"state,omitempty"`
	Step       int     `json:"step,omitempty"`
	StreamID   int     `json:"stream_id,omitempty"`
	Triad      []int   `json:"triad,omitempty"`
	Cycle      int64   `json:"cycle,omitempty"`
	Coupling   string  `json:"coupling,omitempty"`
	Pattern    string  `json:"pattern,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Focus      string  `json:"focus,omitempty"`
}

// Emitter accepts events for publication. The kernel and stream scheduler
// depend on this rather than on Bus so tests can record events directly.
type Emitter interface {
	Emit(Event)
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}
