package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triadic/internal/kernel"
)

func loadFixture(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func TestRun_FixtureScenariosPass(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadFixture(t, "single_process.yaml")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestRun_AliasesAndIDs(t *testing.T) {
	result, err := Run(loadFixture(t, "lifecycle.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "proc-1", result.Aliases["p"])
	assert.Equal(t, "proc-2", result.Aliases["c"])
	assert.Equal(t, "proc-3", result.Aliases["g"])
	assert.Equal(t, "proc-1", result.Resolve("p"))
	assert.Equal(t, "ghost", result.Resolve("ghost"))
}

func TestRun_FinalTable(t *testing.T) {
	result, err := Run(loadFixture(t, "priority.yaml"))
	require.NoError(t, err)

	require.Len(t, result.Processes, 2)
	high := result.Processes[result.Resolve("high")]
	assert.Equal(t, kernel.StateActive, high.State)
	assert.Equal(t, 2, high.StepsTaken)
	assert.Equal(t, int64(2), result.Ticks)
	assert.Equal(t, int64(2), result.Metrics.TotalSteps)
}

func TestRun_UnexpectedStepErrorFails(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_suspend
description: "suspending a pending process is rejected"
steps:
  - {do: admit, subject: x, as: a}
  - {do: suspend, process: a}
assertions:
  - {type: process_state, process: a, state: PENDING}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_MissingExpectedErrorFails(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectation
description: "terminate succeeds even though a failure was expected"
steps:
  - {do: admit, subject: x, as: a}
  - {do: terminate, process: a, expect_error: not_found}
assertions:
  - {type: process_state, process: a, state: TERMINATED}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected not_found error")
}

func TestRun_ReapCountMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: reap_mismatch
description: "nothing is finished so nothing is reaped"
steps:
  - {do: admit, subject: x}
  - {do: reap, reaped: 1}
assertions:
  - {type: metric, metric: processes, value: 1}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "reap released 0 processes, expected 1")
}

func TestRun_UpdateContext(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: context
description: "context updates are clamped and recalled memories are folded"
steps:
  - {do: admit, subject: x, as: a}
  - {do: update_context, process: a, valence: -3, arousal: 0.4, recall: [m1, m1, m2]}
assertions:
  - {type: process_state, process: a, memory: m2}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	p := result.Processes[result.Resolve("a")]
	assert.Equal(t, -1.0, p.Context.EmotionalValence)
	assert.Equal(t, 0.4, p.Context.EmotionalArousal)
	assert.Equal(t, []string{"m1", "m2"}, p.Context.RelevantMemories)
}

func TestRun_InvalidOverrides(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_config
description: "zero concurrency is rejected"
config:
  max_concurrent: 0
steps: [{do: tick}]
assertions: [{type: metric, metric: ticks, value: 1}]
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent")
}

func TestRun_CycleComplete(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full_cycle
description: "a lone process completes after one twelve step cycle"
steps:
  - {do: admit, subject: x, as: a}
  - {do: tick, count: 12}
assertions:
  - {type: process_state, process: a, state: COMPLETED}
  - {type: trace_count, kind: cycle_complete, count: 1}
  - {type: trace_order, kinds: [process_created, step_advance, cycle_complete]}
  - {type: metric, metric: total_cycles, value: 1}
  - {type: metric, metric: average_latency, value: 12}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StreamTelemetryOptIn(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: telemetry
description: "only listed kinds are traced"
trace_kinds: [triad_convergence]
steps:
  - {do: admit, subject: x}
  - {do: tick, count: 3}
assertions:
  - {type: trace_count, kind: triad_convergence, count: 3}
  - {type: trace_count, kind: process_created, count: 0}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 3)
}
