package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/kernel"
)

// Scenario is a scripted run of the engine. Steps drive the kernel through
// admissions, ticks and lifecycle operations; assertions check the
// resulting trace and the final process table.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides selected engine settings.
	Config *Overrides `yaml:"config,omitempty"`

	// Completer selects the collaborator answering completion requests.
	// Empty means none; "echo" answers "Re: <subject>".
	Completer string `yaml:"completer,omitempty"`

	// Memories seed an in-memory store searched on activation.
	Memories []MemoryFixture `yaml:"memories,omitempty"`

	// TraceKinds limits which notifications are recorded. Defaults to the
	// kernel's own kinds; stream telemetry is left out unless listed.
	TraceKinds []string `yaml:"trace_kinds,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Overrides are the engine settings a scenario may change.
type Overrides struct {
	MaxConcurrent    *int    `yaml:"max_concurrent,omitempty"`
	ActivationSteps  *int    `yaml:"activation_steps,omitempty"`
	CompletionCycles *int    `yaml:"completion_cycles,omitempty"`
	Seed             *uint64 `yaml:"seed,omitempty"`
}

// MemoryFixture is one stored memory.
type MemoryFixture struct {
	ID      string   `yaml:"id"`
	Content string   `yaml:"content"`
	Tags    []string `yaml:"tags,omitempty"`
}

// Step is one scripted operation. Do selects the operation; the other
// fields are its arguments.
type Step struct {
	Do string `yaml:"do"`

	// Process names the target by alias or id.
	Process string `yaml:"process,omitempty"`
	// As binds an alias to the process created by admit or fork.
	As string `yaml:"as,omitempty"`

	From     string   `yaml:"from,omitempty"`
	To       []string `yaml:"to,omitempty"`
	Subject  string   `yaml:"subject,omitempty"`
	Content  string   `yaml:"content,omitempty"`
	Priority int      `yaml:"priority,omitempty"`

	// Count is the number of ticks for tick (default 1).
	Count int `yaml:"count,omitempty"`

	Response string   `yaml:"response,omitempty"`
	Valence  *float64 `yaml:"valence,omitempty"`
	Arousal  *float64 `yaml:"arousal,omitempty"`
	Recall   []string `yaml:"recall,omitempty"`

	// Reaped is the expected number of processes released by reap.
	Reaped *int `yaml:"reaped,omitempty"`

	// ExpectError is "not_found" or "transition" when the step must fail.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	StepAdmit         = "admit"
	StepTick          = "tick"
	StepSuspend       = "suspend"
	StepResume        = "resume"
	StepTerminate     = "terminate"
	StepFork          = "fork"
	StepSignal        = "signal"
	StepUpdateContext = "update_context"
	StepReap          = "reap"
)

// Expected step errors.
const (
	ErrorNotFound   = "not_found"
	ErrorTransition = "transition"
)

// CompleterEcho selects collab.EchoCompleter.
const CompleterEcho = "echo"

// Assertion validates the trace or the final process table.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Kind matching the optional fields
	// - "trace_order": the first events of Kinds appear in order
	// - "trace_count": exactly Count events of Kind (optionally for Process)
	// - "process_state": Process is in State, with optional response,
	//   memory and coupling checks
	// - "process_absent": Process has been reaped or never existed
	// - "metric": the named kernel metric equals Value
	Type string `yaml:"type"`

	Kind     string   `yaml:"kind,omitempty"`
	Kinds    []string `yaml:"kinds,omitempty"`
	Process  string   `yaml:"process,omitempty"`
	Parent   string   `yaml:"parent,omitempty"`
	State    string   `yaml:"state,omitempty"`
	Step     int      `yaml:"step,omitempty"`
	Coupling string   `yaml:"coupling,omitempty"`
	Count    int      `yaml:"count,omitempty"`

	Response string `yaml:"response,omitempty"`
	Memory   string `yaml:"memory,omitempty"`

	Metric string   `yaml:"metric,omitempty"`
	Value  *float64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertProcessState  = "process_state"
	AssertProcessAbsent = "process_absent"
	AssertMetric        = "metric"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every .yaml and .yml file directly under dir, sorted by
// file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var out []*Scenario
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Completer != "" && s.Completer != CompleterEcho {
		return fmt.Errorf("unknown completer %q", s.Completer)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, k := range s.TraceKinds {
		if _, err := event.ParseKind(k); err != nil {
			return fmt.Errorf("trace_kinds: %w", err)
		}
	}
	for i, m := range s.Memories {
		if m.ID == "" {
			return fmt.Errorf("memories[%d]: id is required", i)
		}
	}

	aliases := map[string]bool{}
	for i, step := range s.Steps {
		if err := validateStep(i, step, aliases); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, aliases map[string]bool) error {
	switch step.Do {
	case "":
		return fmt.Errorf("steps[%d]: do is required", i)
	case StepAdmit:
		if step.Subject == "" {
			return fmt.Errorf("steps[%d]: subject is required for admit", i)
		}
	case StepTick:
		if step.Count < 0 {
			return fmt.Errorf("steps[%d]: count must be non-negative for tick", i)
		}
	case StepSuspend, StepResume, StepTerminate, StepFork, StepSignal, StepUpdateContext:
		if step.Process == "" {
			return fmt.Errorf("steps[%d]: process is required for %s", i, step.Do)
		}
	case StepReap:
	default:
		return fmt.Errorf("steps[%d]: unknown operation %q", i, step.Do)
	}

	if step.As != "" {
		if step.Do != StepAdmit && step.Do != StepFork {
			return fmt.Errorf("steps[%d]: as is only valid for admit and fork", i)
		}
		if aliases[step.As] {
			return fmt.Errorf("steps[%d]: alias %q already bound", i, step.As)
		}
		aliases[step.As] = true
	}
	switch step.ExpectError {
	case "", ErrorNotFound, ErrorTransition:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
		if _, err := event.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := event.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if _, err := event.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertProcessState:
		if a.Process == "" {
			return fmt.Errorf("assertions[%d]: process is required for process_state", index)
		}
		if a.State != "" && !slices.Contains(kernel.States, kernel.State(a.State)) {
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	case AssertProcessAbsent:
		if a.Process == "" {
			return fmt.Errorf("assertions[%d]: process is required for process_absent", index)
		}
	case AssertMetric:
		if _, ok := metricNames[a.Metric]; !ok {
			return fmt.Errorf("assertions[%d]: unknown metric %q", index, a.Metric)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for metric", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
