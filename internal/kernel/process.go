package kernel

import "slices"

// State is a process lifecycle state.
type State string

const (
	StatePending    State = "PENDING"
	StateActive     State = "ACTIVE"
	StateProcessing State = "PROCESSING"
	StateSuspended  State = "SUSPENDED"
	StateCompleted  State = "COMPLETED"
	StateTerminated State = "TERMINATED"
)

// States lists every lifecycle state.
var States = []State{
	StatePending,
	StateActive,
	StateProcessing,
	StateSuspended,
	StateCompleted,
	StateTerminated,
}

// Runnable reports whether a process in this state is eligible for
// scheduling.
func (s State) Runnable() bool {
	return s == StatePending || s == StateActive || s == StateProcessing
}

// Finished reports whether the state is terminal.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateTerminated
}

// Defaults for a fresh cognitive context.
const (
	DefaultSalience        = 0.5
	DefaultAttentionWeight = 0.5
)

// CognitiveContext is the affect/attention/memory bundle carried by a
// process through scheduling.
type CognitiveContext struct {
	RelevantMemories []string `json:"relevant_memories"`
	EmotionalValence float64  `json:"emotional_valence"`
	EmotionalArousal float64  `json:"emotional_arousal"`
	SalienceScore    float64  `json:"salience_score"`
	AttentionWeight  float64  `json:"attention_weight"`
	ActiveCouplings  []string `json:"active_couplings"`
}

func newContext() CognitiveContext {
	return CognitiveContext{
		RelevantMemories: []string{},
		ActiveCouplings:  []string{},
		SalienceScore:    DefaultSalience,
		AttentionWeight:  DefaultAttentionWeight,
	}
}

// Clone returns a deep copy.
func (c CognitiveContext) Clone() CognitiveContext {
	out := c
	out.RelevantMemories = slices.Clone(c.RelevantMemories)
	out.ActiveCouplings = slices.Clone(c.ActiveCouplings)
	if out.RelevantMemories == nil {
		out.RelevantMemories = []string{}
	}
	if out.ActiveCouplings == nil {
		out.ActiveCouplings = []string{}
	}
	return out
}

// clamp keeps every bounded field in range.
func (c *CognitiveContext) clamp() {
	c.EmotionalValence = clampTo(c.EmotionalValence, -1, 1)
	c.EmotionalArousal = clampTo(c.EmotionalArousal, 0, 1)
	c.SalienceScore = clampTo(c.SalienceScore, 0, 1)
	c.AttentionWeight = clampTo(c.AttentionWeight, 0, 1)
}

func clampTo(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}

// HistoryEntry records one scheduling step of a process.
type HistoryEntry struct {
	Tick     int64   `json:"tick"`
	Step     int     `json:"step"`
	State    State   `json:"state"`
	Salience float64 `json:"salience"`
	Note     string  `json:"note,omitempty"`
}

// Process is a scheduled unit of cognitive work.
type Process struct {
	ID          string           `json:"id"`
	MessageID   string           `json:"message_id"`
	From        string           `json:"from"`
	To          []string         `json:"to"`
	Subject     string           `json:"subject"`
	Content     string           `json:"content"`
	Priority    int              `json:"priority"`
	State       State            `json:"state"`
	CurrentStep int              `json:"current_step"`
	Context     CognitiveContext `json:"cognitive_context"`
	History     []HistoryEntry   `json:"execution_history"`
	ParentID    string           `json:"parent_id,omitempty"`
	ChildIDs    []string         `json:"child_ids"`

	// StepsTaken counts steps advanced since creation.
	StepsTaken int `json:"steps_taken"`
	// Arrival orders processes of equal priority.
	Arrival       int64  `json:"arrival"`
	CreatedTick   int64  `json:"created_tick"`
	CompletedTick int64  `json:"completed_tick,omitempty"`
	Response      string `json:"response,omitempty"`

	completionSignaled bool
}

// Clone returns a deep copy safe to hand to callers.
func (p *Process) Clone() Process {
	out := *p
	out.To = slices.Clone(p.To)
	out.Context = p.Context.Clone()
	out.History = slices.Clone(p.History)
	out.ChildIDs = slices.Clone(p.ChildIDs)
	if out.ChildIDs == nil {
		out.ChildIDs = []string{}
	}
	return out
}

// Request describes a new process.
type Request struct {
	MessageID string
	From      string
	To        []string
	Subject   string
	Content   string
	Priority  int
}
