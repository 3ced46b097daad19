package stream

import (
	"maps"
	"slices"
	"sort"

	"github.com/roach88/triadic/internal/stepclock"
	"github.com/roach88/triadic/internal/tensor"
)

// Role is the specialization of a stream.
type Role string

const (
	RolePerception Role = "perception"
	RoleAction     Role = "action"
	RoleSimulation Role = "simulation"
)

var roles = [3]Role{RolePerception, RoleAction, RoleSimulation}

// Item is one working-memory entry.
type Item struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
	Novelty   float64 `json:"novelty"`
}

// Attention is a stream's current focus and its salience/novelty levels.
type Attention struct {
	Focus    string  `json:"focus"`
	Salience float64 `json:"salience"`
	Novelty  float64 `json:"novelty"`
}

// Outcome is a weighted simulated outcome produced by salience simulation.
type Outcome struct {
	ItemID string  `json:"item_id"`
	Weight float64 `json:"weight"`
}

// State is a snapshot of one stream. Snapshots share nothing with the
// scheduler's live state.
type State struct {
	ID          stepclock.StreamID `json:"id"`
	Role        Role               `json:"role"`
	CurrentStep int                `json:"current_step"`
	Mode        stepclock.Mode     `json:"mode"`
	StepType    stepclock.StepType `json:"step_type"`
	Memory      []Item             `json:"memory"`
	Activations map[string]float64 `json:"activations"`
	Attention   Attention          `json:"attention"`
	Outcomes    []Outcome          `json:"outcomes,omitempty"`
	Tensor      tensor.Tensor      `json:"-"`
}

// streamState is the live, scheduler-owned state of one stream.
type streamState struct {
	id          stepclock.StreamID
	role        Role
	currentStep int
	profile     stepclock.StepProfile
	memory      []Item
	activations map[string]float64
	attention   Attention
	outcomes    []Outcome
	state       tensor.Tensor
}

func (s *streamState) snapshot() State {
	return State{
		ID:          s.id,
		Role:        s.role,
		CurrentStep: s.currentStep,
		Mode:        s.profile.Mode,
		StepType:    s.profile.StepType,
		Memory:      slices.Clone(s.memory),
		Activations: maps.Clone(s.activations),
		Attention:   s.attention,
		Outcomes:    slices.Clone(s.outcomes),
		Tensor:      s.state,
	}
}

// offer inserts or refreshes a working-memory item. A known item keeps the
// higher relevance and takes the new novelty.
func (s *streamState) offer(item Item) {
	for i := range s.memory {
		if s.memory[i].ID == item.ID {
			s.memory[i].Relevance = max(s.memory[i].Relevance, item.Relevance)
			s.memory[i].Novelty = item.Novelty
			s.memory[i].Content = item.Content
			s.refreshNovelty()
			return
		}
	}
	s.memory = append(s.memory, item)
	if _, ok := s.activations[item.ID]; !ok {
		s.activations[item.ID] = item.Relevance
	}
	s.refreshNovelty()
}

// refreshNovelty sets attention novelty to the most novel item's novelty.
func (s *streamState) refreshNovelty() {
	var n float64
	for _, it := range s.memory {
		n = max(n, it.Novelty)
	}
	s.attention.Novelty = n
}

// meanActivation averages the activation weights, 0 when there are none.
func (s *streamState) meanActivation() float64 {
	if len(s.activations) == 0 {
		return 0
	}
	var sum float64
	for _, w := range s.activations {
		sum += w
	}
	return sum / float64(len(s.activations))
}

// sortedIDs returns activation keys in a stable order for deterministic
// iteration.
func sortedIDs(m map[string]float64) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
