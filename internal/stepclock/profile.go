package stepclock

import "sort"

// StreamCycleLen is the length of the stream/process cycle.
const StreamCycleLen = 12

// Mode is the processing mode of a step.
type Mode string

const (
	ModeExpressive Mode = "expressive"
	ModeReflective Mode = "reflective"
)

// StepType selects the transition a stream executes on a step.
type StepType string

const (
	StepRelevanceRealization  StepType = "relevance_realization"
	StepAffordanceInteraction StepType = "affordance_interaction"
	StepSalienceSimulation    StepType = "salience_simulation"
)

// StepProfile is the Cycle12 table entry for one step.
type StepProfile struct {
	Mode     Mode     `json:"mode"`
	StepType StepType `json:"step_type"`
}

// Cycle12 is the stream/process cycle: steps 1 and 7 realize relevance,
// 2-6 interact with affordances (expressive), 8-12 simulate salience
// (reflective).
var Cycle12 = NewCycle("stream", []StepProfile{
	{ModeExpressive, StepRelevanceRealization},  // 1
	{ModeExpressive, StepAffordanceInteraction}, // 2
	{ModeExpressive, StepAffordanceInteraction}, // 3
	{ModeExpressive, StepAffordanceInteraction}, // 4
	{ModeExpressive, StepAffordanceInteraction}, // 5
	{ModeExpressive, StepAffordanceInteraction}, // 6
	{ModeExpressive, StepRelevanceRealization},  // 7
	{ModeReflective, StepSalienceSimulation},    // 8
	{ModeReflective, StepSalienceSimulation},    // 9
	{ModeReflective, StepSalienceSimulation},    // 10
	{ModeReflective, StepSalienceSimulation},    // 11
	{ModeReflective, StepSalienceSimulation},    // 12
})

// Triad is a set of three Cycle12 steps, 4 apart, at which the streams
// synchronize.
type Triad [3]int

// Triads lists the four synchronization triads in order.
var Triads = [4]Triad{
	{1, 5, 9},
	{2, 6, 10},
	{3, 7, 11},
	{4, 8, 12},
}

// TriadOf returns the index into Triads of the triad containing step.
func TriadOf(step int) int {
	return mod(step-1, 4)
}

// Contains reports whether step belongs to the triad.
func (t Triad) Contains(step int) bool {
	return t[0] == step || t[1] == step || t[2] == step
}

// MatchTriad reports whether steps, taken as a set, equal one of the
// synchronization triads.
func MatchTriad(steps []int) (Triad, bool) {
	if len(steps) != 3 {
		return Triad{}, false
	}
	sorted := []int{steps[0], steps[1], steps[2]}
	sort.Ints(sorted)
	for _, t := range Triads {
		if sorted[0] == t[0] && sorted[1] == t[1] && sorted[2] == t[2] {
			return t, true
		}
	}
	return Triad{}, false
}
