// Package harness runs scripted scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  activation_steps: 4
//	completer: echo
//	memories:
//	  - { id: m1, content: "hello there", tags: [greeting] }
//	steps:
//	  - { do: admit, subject: hello, priority: 1, as: a }
//	  - { do: tick, count: 4 }
//	  - { do: suspend, process: a, expect_error: transition }
//	assertions:
//	  - { type: process_state, process: a, state: PROCESSING }
//	  - { type: trace_count, kind: coupling_activated, count: 4 }
//	  - { type: metric, metric: total_steps, value: 4 }
//
// Unknown fields are rejected so typos fail loudly.
//
// # Determinism
//
// Each run uses a fresh engine, process ids "proc-1", "proc-2", ... in
// admission order, and waits for collaborator calls after every tick so
// their results fold on the following tick. Only kernel notifications are
// traced by default; stream telemetry can be added with trace_kinds.
//
// # Golden Files
//
// RunWithGolden compares the trace, one canonical JSON event per line,
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
