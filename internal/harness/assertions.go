package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/triadic/internal/kernel"
)

// metricTolerance bounds float comparison in metric assertions.
const metricTolerance = 1e-9

// metricNames maps assertion metric names to kernel metrics.
var metricNames = map[string]func(r *Result) float64{
	"total_steps":          func(r *Result) float64 { return float64(r.Metrics.TotalSteps) },
	"total_cycles":         func(r *Result) float64 { return float64(r.Metrics.TotalCycles) },
	"processes_completed":  func(r *Result) float64 { return float64(r.Metrics.ProcessesCompleted) },
	"average_latency":      func(r *Result) float64 { return r.Metrics.AverageLatency },
	"cognitive_load":       func(r *Result) float64 { return r.Metrics.CognitiveLoad },
	"stream_coherence":     func(r *Result) float64 { return r.Metrics.StreamCoherence },
	"skipped_combinations": func(r *Result) float64 { return float64(r.Metrics.SkippedCombinations) },
	"processes":            func(r *Result) float64 { return float64(len(r.Processes)) },
	"ticks":                func(r *Result) float64 { return float64(r.Ticks) },
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] tick=%d %s", i+1, ev.Tick, ev.Kind)
			if ev.ProcessID != "" {
				fmt.Fprintf(&buf, " %s", ev.ProcessID)
			}
			if ev.State != "" {
				fmt.Fprintf(&buf, " %s", ev.State)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// matchEvent reports whether ev satisfies every field set on the assertion.
func matchEvent(ev TraceEvent, a Assertion, r *Result) bool {
	if ev.Kind != a.Kind {
		return false
	}
	if a.Process != "" && ev.ProcessID != r.Resolve(a.Process) {
		return false
	}
	if a.Parent != "" && ev.ParentID != r.Resolve(a.Parent) {
		return false
	}
	if a.State != "" && ev.State != a.State {
		return false
	}
	if a.Step != 0 && ev.Step != a.Step {
		return false
	}
	if a.Coupling != "" && ev.Coupling != a.Coupling {
		return false
	}
	return true
}

// assertTraceContains checks the trace holds an event matching the
// assertion's kind and optional fields.
func assertTraceContains(r *Result, a Assertion) error {
	for _, ev := range r.Trace {
		if matchEvent(ev, a, r) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeMatch(a),
		Actual:   "not found in trace",
		Trace:    r.Trace,
	}
}

// assertTraceOrder checks the first occurrence of each kind appears in the
// listed order. Intervening events are allowed.
func assertTraceOrder(r *Result, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range r.Trace {
		if _, seen := positions[ev.Kind]; !seen && slices.Contains(a.Kinds, ev.Kind) {
			positions[ev.Kind] = i + 1
		}
	}

	for _, kind := range a.Kinds {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all kinds present: %v", a.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", kind),
				Trace:    r.Trace,
			}
		}
	}
	for i := 1; i < len(a.Kinds); i++ {
		prev, curr := a.Kinds[i-1], a.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: r.Trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks exactly Count events match.
func assertTraceCount(r *Result, a Assertion) error {
	count := 0
	for _, ev := range r.Trace {
		if matchEvent(ev, a, r) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describeMatch(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertProcessState checks the final state of one process.
func assertProcessState(r *Result, a Assertion) error {
	id := r.Resolve(a.Process)
	p, ok := r.Processes[id]
	if !ok {
		return &AssertionError{
			Type:     AssertProcessState,
			Expected: fmt.Sprintf("process %s in the table", id),
			Actual:   "not found",
		}
	}
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertProcessState,
			Expected: fmt.Sprintf("process %s %s", id, expected),
			Actual:   actual,
		}
	}
	if a.State != "" && p.State != kernel.State(a.State) {
		return fail("in state "+a.State, string(p.State))
	}
	if a.Step != 0 && p.CurrentStep != a.Step {
		return fail(fmt.Sprintf("at step %d", a.Step), fmt.Sprintf("step %d", p.CurrentStep))
	}
	if a.Response != "" && p.Response != a.Response {
		return fail(fmt.Sprintf("with response %q", a.Response), fmt.Sprintf("%q", p.Response))
	}
	if a.Memory != "" && !slices.Contains(p.Context.RelevantMemories, a.Memory) {
		return fail("recalling "+a.Memory, fmt.Sprintf("%v", p.Context.RelevantMemories))
	}
	if a.Coupling != "" && !slices.Contains(p.Context.ActiveCouplings, a.Coupling) {
		return fail("coupled to "+a.Coupling, fmt.Sprintf("%v", p.Context.ActiveCouplings))
	}
	if a.Parent != "" && p.ParentID != r.Resolve(a.Parent) {
		return fail("forked from "+r.Resolve(a.Parent), fmt.Sprintf("parent %q", p.ParentID))
	}
	return nil
}

func assertProcessAbsent(r *Result, a Assertion) error {
	id := r.Resolve(a.Process)
	if p, ok := r.Processes[id]; ok {
		return &AssertionError{
			Type:     AssertProcessAbsent,
			Expected: fmt.Sprintf("process %s released", id),
			Actual:   fmt.Sprintf("present in state %s", p.State),
		}
	}
	return nil
}

func assertMetric(r *Result, a Assertion) error {
	get, ok := metricNames[a.Metric]
	if !ok {
		return fmt.Errorf("unknown metric %q", a.Metric)
	}
	got := get(r)
	if math.Abs(got-*a.Value) > metricTolerance {
		return &AssertionError{
			Type:     AssertMetric,
			Expected: fmt.Sprintf("%s = %v", a.Metric, *a.Value),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func describeMatch(a Assertion) string {
	parts := []string{a.Kind}
	if a.Process != "" {
		parts = append(parts, "process="+a.Process)
	}
	if a.Parent != "" {
		parts = append(parts, "parent="+a.Parent)
	}
	if a.State != "" {
		parts = append(parts, "state="+a.State)
	}
	if a.Step != 0 {
		parts = append(parts, fmt.Sprintf("step=%d", a.Step))
	}
	if a.Coupling != "" {
		parts = append(parts, "coupling="+a.Coupling)
	}
	return strings.Join(parts, " ")
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		case AssertProcessState:
			err = assertProcessState(result, assertion)
		case AssertProcessAbsent:
			err = assertProcessAbsent(result, assertion)
		case AssertMetric:
			err = assertMetric(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
