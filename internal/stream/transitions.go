package stream

import (
	"fmt"
	"sort"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/stepclock"
	"github.com/roach88/triadic/internal/tensor"
)

// strongRelevance is the relevance above which affordance interaction
// strengthens an item's activation.
const strongRelevance = 0.5

// transition runs the step-type update for one stream.
func (s *Scheduler) transition(st *streamState) {
	switch st.profile.StepType {
	case stepclock.StepRelevanceRealization:
		s.realizeRelevance(st)
	case stepclock.StepAffordanceInteraction:
		s.interactAffordances(st)
	case stepclock.StepSalienceSimulation:
		s.simulateSalience(st)
	}
}

// realizeRelevance decays activations, drops those under threshold and
// shifts attention to the most novel item when novelty beats salience.
func (s *Scheduler) realizeRelevance(st *streamState) {
	for _, id := range sortedIDs(st.activations) {
		w := st.activations[id] * (1 - s.params.DecayRate)
		if w < s.params.ActivationThreshold {
			delete(st.activations, id)
			continue
		}
		st.activations[id] = w
	}

	if st.attention.Novelty <= st.attention.Salience || len(st.memory) == 0 {
		return
	}

	best := 0
	for i, it := range st.memory {
		if it.Novelty > st.memory[best].Novelty {
			best = i
		}
	}
	target := st.memory[best]
	previous := st.attention.Focus
	st.attention.Focus = target.ID

	if previous != target.ID {
		s.emit.Emit(event.Event{
			Tick:     s.tick,
			Kind:     event.KindAttentionShifted,
			StreamID: int(st.id),
			Focus:    target.ID,
		})
	}
}

// interactAffordances strengthens relevant items and prunes working memory
// back to capacity, keeping the most relevant items. Pruned items lose
// their activation weights too.
func (s *Scheduler) interactAffordances(st *streamState) {
	for _, it := range st.memory {
		if it.Relevance <= strongRelevance {
			continue
		}
		st.activations[it.ID] = min(1.0, st.activations[it.ID]+s.params.StrengthenRate)
	}

	if len(st.memory) <= s.params.MemoryCapacity {
		return
	}
	sort.SliceStable(st.memory, func(i, j int) bool {
		return st.memory[i].Relevance > st.memory[j].Relevance
	})
	for _, it := range st.memory[s.params.MemoryCapacity:] {
		delete(st.activations, it.ID)
	}
	st.memory = st.memory[:s.params.MemoryCapacity]
	st.refreshNovelty()
}

// simulateSalience collects activations above threshold as weighted
// outcomes and sets salience to the strongest weight.
func (s *Scheduler) simulateSalience(st *streamState) {
	st.outcomes = st.outcomes[:0]
	var top Outcome
	for _, id := range sortedIDs(st.activations) {
		w := st.activations[id]
		if w <= s.params.ActivationThreshold {
			continue
		}
		o := Outcome{ItemID: id, Weight: w}
		st.outcomes = append(st.outcomes, o)
		if w > top.Weight {
			top = o
		}
	}
	st.attention.Salience = top.Weight

	if top.Weight >= s.params.PatternThreshold {
		confidence := top.Weight * (1 - s.params.ConfidenceJitter*s.rng.Float64())
		s.emit.Emit(event.Event{
			Tick:       s.tick,
			Kind:       event.KindPatternRecognized,
			StreamID:   int(st.id),
			Pattern:    fmt.Sprintf("%s:%s", st.role, top.ItemID),
			Confidence: confidence,
		})
	}
}

// evolve folds the stream's attention signals into its state tensor:
// state' = tanh(state/2 + features).
func (s *Scheduler) evolve(st *streamState) error {
	signals := []float64{
		st.attention.Salience,
		st.attention.Novelty,
		st.meanActivation(),
		float64(len(st.memory)) / float64(s.params.MemoryCapacity),
	}
	features := make([]float64, s.params.TensorDim)
	for i := range features {
		features[i] = signals[i%len(signals)]
	}
	next, err := tensor.Add(st.state.Scale(0.5), tensor.Vector(features...))
	if err != nil {
		return fmt.Errorf("evolve stream %d: %w", st.id, err)
	}
	st.state = next.Tanh()
	return nil
}
