package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/stepclock"
	"github.com/roach88/triadic/internal/tensor"
)

func newTestScheduler(t *testing.T) (*Scheduler, *event.Recorder) {
	t.Helper()
	rec := &event.Recorder{}
	return NewScheduler(DefaultParams(), rec), rec
}

func TestNewScheduler_PhaseOffsets(t *testing.T) {
	s, _ := newTestScheduler(t)
	snap := s.Snapshot()

	assert.Equal(t, 1, snap[0].CurrentStep)
	assert.Equal(t, 5, snap[1].CurrentStep)
	assert.Equal(t, 9, snap[2].CurrentStep)
	assert.Equal(t, RolePerception, snap[0].Role)
	assert.Equal(t, RoleAction, snap[1].Role)
	assert.Equal(t, RoleSimulation, snap[2].Role)
	assert.Equal(t, stepclock.StepSalienceSimulation, snap[2].StepType)
	assert.Equal(t, stepclock.ModeReflective, snap[2].Mode)
}

func TestTick_PreservesPhaseOffset(t *testing.T) {
	s, _ := newTestScheduler(t)
	for tick := 0; tick < 50; tick++ {
		snap := s.Snapshot()
		for i := 0; i < StreamCount; i++ {
			j := (i + StreamCount - 1) % StreamCount
			diff := (snap[i].CurrentStep - snap[j].CurrentStep + 12) % 12
			assert.Equal(t, 4, diff, "tick %d streams %d/%d", tick, i+1, j+1)
		}
		s.Tick()
	}
}

func TestTick_SynchronizesEveryTick(t *testing.T) {
	s, rec := newTestScheduler(t)

	res := s.Tick()
	require.True(t, res.Synchronized)
	assert.Equal(t, stepclock.Triad{2, 6, 10}, res.Triad)
	assert.Equal(t, [3]int{2, 6, 10}, res.Steps)
	assert.Equal(t, []int{3 * s.Params().TensorDim}, res.Integrated.Shape())
	assert.NoError(t, res.CombineErr)

	for i := 0; i < 11; i++ {
		s.Tick()
	}
	assert.Equal(t, 12, rec.Count(event.KindTriadConvergence))
	assert.Equal(t, int64(12), s.Ticks())
}

func TestRelevanceRealization_DecayAndAttentionShift(t *testing.T) {
	s, rec := newTestScheduler(t)
	require.NoError(t, s.Offer(stepclock.Stream1, Item{ID: "m1", Relevance: 0.9, Novelty: 0.8}))
	require.NoError(t, s.Offer(stepclock.Stream1, Item{ID: "faint", Relevance: 0.105, Novelty: 0.1}))

	s.Tick() // stream 1 runs step 1: relevance realization

	st, ok := s.Stream(stepclock.Stream1)
	require.True(t, ok)
	assert.InDelta(t, 0.81, st.Activations["m1"], 1e-9)
	_, present := st.Activations["faint"]
	assert.False(t, present, "activation under threshold is dropped")
	assert.Equal(t, "m1", st.Attention.Focus)
	assert.InDelta(t, 0.8, st.Attention.Novelty, 1e-9, "a shift leaves novelty unchanged")

	shifts := 0
	for _, ev := range rec.Events() {
		if ev.Kind == event.KindAttentionShifted {
			shifts++
			assert.Equal(t, 1, ev.StreamID)
			assert.Equal(t, "m1", ev.Focus)
		}
	}
	assert.Equal(t, 1, shifts)
}

func TestAffordanceInteraction_StrengthenAndPrune(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Tick() // stream 1 now at step 2 (affordance interaction)

	for i := 1; i <= 9; i++ {
		require.NoError(t, s.Offer(stepclock.Stream1, Item{
			ID:        fmt.Sprintf("i%d", i),
			Relevance: float64(i) / 10,
		}))
	}
	s.Tick()

	st, _ := s.Stream(stepclock.Stream1)
	require.Len(t, st.Memory, 7)
	for _, it := range st.Memory {
		assert.GreaterOrEqual(t, it.Relevance, 0.3, "least relevant items pruned")
	}
	assert.InDelta(t, 0.9, st.Activations["i8"], 1e-9)
	assert.InDelta(t, 1.0, st.Activations["i9"], 1e-9, "strengthening caps at 1")
	assert.InDelta(t, 0.5, st.Activations["i5"], 1e-9, "relevance 0.5 is not strengthened")
	assert.Len(t, st.Activations, 7)
	assert.NotContains(t, st.Activations, "i1")
	assert.NotContains(t, st.Activations, "i2")
}

func TestSalienceSimulation_SkipsPrunedItems(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Tick() // stream 1 at step 2
	for i := 1; i <= 9; i++ {
		require.NoError(t, s.Offer(stepclock.Stream1, Item{
			ID:        fmt.Sprintf("i%d", i),
			Relevance: 0.2 + float64(i)/100,
		}))
	}
	// Steps 2-6 interact with affordances, 7 realizes relevance, 8
	// simulates salience.
	for i := 0; i < 7; i++ {
		s.Tick()
	}

	st, _ := s.Stream(stepclock.Stream1)
	require.Equal(t, stepclock.StepSalienceSimulation, st.StepType)
	for _, o := range st.Outcomes {
		assert.NotEqual(t, "i1", o.ItemID)
		assert.NotEqual(t, "i2", o.ItemID)
	}
}

func TestSalienceSimulation_SetsSalienceAndRecognizesPattern(t *testing.T) {
	s, rec := newTestScheduler(t)
	require.NoError(t, s.Offer(stepclock.Stream3, Item{ID: "s1", Relevance: 0.9}))
	require.NoError(t, s.Offer(stepclock.Stream3, Item{ID: "s2", Relevance: 0.3}))

	s.Tick() // stream 3 runs step 9: salience simulation

	st, _ := s.Stream(stepclock.Stream3)
	assert.InDelta(t, 0.9, st.Attention.Salience, 1e-9)
	assert.Len(t, st.Outcomes, 2)

	var found bool
	for _, ev := range rec.Events() {
		if ev.Kind == event.KindPatternRecognized {
			found = true
			assert.Equal(t, "simulation:s1", ev.Pattern)
			assert.GreaterOrEqual(t, ev.Confidence, 0.9*0.8)
			assert.LessOrEqual(t, ev.Confidence, 0.9)
		}
	}
	assert.True(t, found)
}

func TestCoherence_Bounded(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Equal(t, 1.0, s.Coherence())

	require.NoError(t, s.Offer(stepclock.Stream3, Item{ID: "x", Relevance: 1}))
	for i := 0; i < 30; i++ {
		s.Tick()
		c := s.Coherence()
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestIntegrateCycle(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.IntegrateCycle()
	assert.Error(t, err, "nothing to fold before the first triad")
	assert.Equal(t, int64(1), s.SkippedCombinations())

	s.Tick()
	out, err := s.IntegrateCycle()
	require.NoError(t, err)
	assert.Equal(t, []int{4 * s.Params().TensorDim}, out.Shape())

	triadic, tetradic := s.LastIntegration()
	assert.False(t, triadic.IsEmpty())
	assert.True(t, tensor.Equal(out, tetradic, 0))
}

func TestOffer_RejectsIntegrationSlot(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Error(t, s.Offer(stepclock.Integration, Item{ID: "x"}))
	_, ok := s.Stream(stepclock.StreamID(4))
	assert.False(t, ok)
}

func TestSnapshot_IsolatedFromLiveState(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.Offer(stepclock.Stream1, Item{ID: "a", Relevance: 0.7}))

	snap := s.Snapshot()
	snap[0].Activations["a"] = 0
	snap[0].Memory[0].Relevance = 0

	st, _ := s.Stream(stepclock.Stream1)
	assert.Equal(t, 0.7, st.Activations["a"])
	assert.Equal(t, 0.7, st.Memory[0].Relevance)
}

func TestScheduler_Deterministic(t *testing.T) {
	a := NewScheduler(DefaultParams(), nil)
	b := NewScheduler(DefaultParams(), nil)
	for i := 0; i < 25; i++ {
		ra := a.Tick()
		rb := b.Tick()
		assert.True(t, tensor.Equal(ra.Integrated, rb.Integrated, 0))
	}
}
