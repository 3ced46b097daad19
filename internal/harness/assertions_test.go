package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triadic/internal/kernel"
)

func float(v float64) *float64 { return &v }

func sampleResult() *Result {
	r := NewResult()
	r.Aliases["a"] = "proc-1"
	r.Aliases["b"] = "proc-2"
	r.Trace = []TraceEvent{
		{Tick: 0, Kind: "process_created", ProcessID: "proc-1", State: "PENDING"},
		{Tick: 0, Kind: "process_created", ProcessID: "proc-2", ParentID: "proc-1", State: "PENDING"},
		{Tick: 1, Kind: "triad_convergence", Triad: []int{2, 6, 10}},
		{Tick: 1, Kind: "coupling_activated", ProcessID: "proc-1", Coupling: "triad-2-6-10"},
		{Tick: 1, Kind: "step_advance", ProcessID: "proc-1", State: "ACTIVE", Step: 2},
		{Tick: 1, Kind: "step_advance", ProcessID: "proc-2", State: "ACTIVE", Step: 2},
	}
	r.Processes["proc-1"] = kernel.Process{
		ID:          "proc-1",
		State:       kernel.StateActive,
		CurrentStep: 2,
		Response:    "done",
		Context: kernel.CognitiveContext{
			RelevantMemories: []string{"m1"},
			ActiveCouplings:  []string{"triad-2-6-10"},
		},
	}
	r.Processes["proc-2"] = kernel.Process{ID: "proc-2", State: kernel.StateActive, ParentID: "proc-1"}
	r.Metrics = kernel.Metrics{TotalSteps: 1, CognitiveLoad: 0.5}
	r.Ticks = 1
	return r
}

func TestAssertTraceContains(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceContains(r, Assertion{Kind: "step_advance", Process: "a", State: "ACTIVE", Step: 2}))
	assert.NoError(t, assertTraceContains(r, Assertion{Kind: "process_created", Process: "b", Parent: "a"}))
	assert.NoError(t, assertTraceContains(r, Assertion{Kind: "coupling_activated", Coupling: "triad-2-6-10"}))

	err := assertTraceContains(r, Assertion{Kind: "step_advance", Process: "a", State: "PROCESSING"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Equal(t, "not found in trace", ae.Actual)
	assert.Contains(t, ae.Expected, "state=PROCESSING")
}

func TestAssertTraceOrder(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceOrder(r, Assertion{Kinds: []string{"process_created", "triad_convergence", "step_advance"}}))

	err := assertTraceOrder(r, Assertion{Kinds: []string{"step_advance", "triad_convergence"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(r, Assertion{Kinds: []string{"process_created", "cycle_complete"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind: cycle_complete")
}

func TestAssertTraceCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceCount(r, Assertion{Kind: "step_advance", Count: 2}))
	assert.NoError(t, assertTraceCount(r, Assertion{Kind: "step_advance", Process: "b", Count: 1}))
	assert.NoError(t, assertTraceCount(r, Assertion{Kind: "cycle_complete", Count: 0}))

	err := assertTraceCount(r, Assertion{Kind: "process_created", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertProcessState(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertProcessState(r, Assertion{
		Process:  "a",
		State:    "ACTIVE",
		Step:     2,
		Response: "done",
		Memory:   "m1",
		Coupling: "triad-2-6-10",
	}))
	assert.NoError(t, assertProcessState(r, Assertion{Process: "b", Parent: "a"}))

	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"missing", Assertion{Process: "zzz"}, "not found"},
		{"state", Assertion{Process: "a", State: "COMPLETED"}, "in state COMPLETED"},
		{"step", Assertion{Process: "a", Step: 7}, "at step 7"},
		{"response", Assertion{Process: "a", Response: "nope"}, `with response "nope"`},
		{"memory", Assertion{Process: "a", Memory: "m9"}, "recalling m9"},
		{"coupling", Assertion{Process: "a", Coupling: "triad-1-5-9"}, "coupled to triad-1-5-9"},
		{"parent", Assertion{Process: "a", Parent: "b"}, "forked from proc-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertProcessState(r, tt.a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAssertProcessAbsent(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertProcessAbsent(r, Assertion{Process: "gone"}))

	err := assertProcessAbsent(r, Assertion{Process: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "present in state ACTIVE")
}

func TestAssertMetric(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertMetric(r, Assertion{Metric: "total_steps", Value: float(1)}))
	assert.NoError(t, assertMetric(r, Assertion{Metric: "cognitive_load", Value: float(0.5)}))
	assert.NoError(t, assertMetric(r, Assertion{Metric: "processes", Value: float(2)}))
	assert.NoError(t, assertMetric(r, Assertion{Metric: "ticks", Value: float(1)}))

	err := assertMetric(r, Assertion{Metric: "total_cycles", Value: float(3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_cycles = 3")
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceCount, Kind: "step_advance", Count: 2},
		{Type: AssertProcessState, Process: "a", State: "SUSPENDED"},
		{Type: "vibes"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "in state SUSPENDED")
	assert.Contains(t, errs[1], `unknown assertion type "vibes"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of step_advance",
		Actual:   "1 occurrences",
		Trace: []TraceEvent{
			{Tick: 1, Kind: "step_advance", ProcessID: "proc-1", State: "ACTIVE"},
		},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 occurrences of step_advance")
	assert.Contains(t, msg, "Actual: 1 occurrences")
	assert.Contains(t, msg, "[1] tick=1 step_advance proc-1 ACTIVE")
}
