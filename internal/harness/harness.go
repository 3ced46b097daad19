package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/triadic/internal/collab"
	"github.com/roach88/triadic/internal/config"
	"github.com/roach88/triadic/internal/engine"
	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/kernel"
)

// IDPrefix prefixes the sequential process ids minted during a run.
const IDPrefix = "proc"

const traceBuffer = 4096

// DefaultTraceKinds are recorded when a scenario lists none.
var DefaultTraceKinds = []event.Kind{
	event.KindProcessCreated,
	event.KindStepAdvance,
	event.KindTriadConvergence,
	event.KindCycleComplete,
	event.KindCouplingActivated,
}

// Harness executes one scenario against a fresh engine.
type Harness struct {
	engine *engine.Engine
	sub    *event.Subscription
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine with sequential process ids, so
// traces are reproducible. Collaborator calls are awaited after every tick
// and folded on the next one.
//
// Execution flow:
// 1. Build the engine from the scenario's overrides and collaborators
// 2. Execute steps, recording the trace after each
// 3. Capture the final process table and metrics
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cfg, err := scenario.engineConfig()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	opts := []engine.Option{
		engine.WithIDGenerator(kernel.NewSequentialGenerator(IDPrefix)),
		engine.WithLogger(logger),
	}
	if scenario.Completer == CompleterEcho {
		opts = append(opts, engine.WithCompleter(collab.EchoCompleter{}))
	}
	if len(scenario.Memories) > 0 {
		mem := collab.NewInMemoryStore()
		for _, m := range scenario.Memories {
			if err := mem.Store(ctx, collab.Memory{ID: m.ID, Content: m.Content, Tags: m.Tags}); err != nil {
				return nil, fmt.Errorf("failed to seed memories: %w", err)
			}
		}
		opts = append(opts, engine.WithMemoryStore(mem))
	}

	eng := engine.New(cfg, opts...)
	defer eng.Close(ctx)

	kinds, err := scenario.traceKinds()
	if err != nil {
		return nil, err
	}
	h := &Harness{
		engine: eng,
		sub:    eng.Bus().Subscribe(traceBuffer, kinds...),
		logger: logger,
	}
	defer h.sub.Cancel()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d (%s): %w", i, step.Do, err)
		}
		if err := h.collect(result); err != nil {
			return nil, err
		}
	}

	snap := eng.Kernel().Snapshot()
	for _, p := range snap.Processes {
		result.Processes[p.ID] = p
	}
	result.Metrics = snap.Metrics
	result.Ticks = snap.Tick

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// execute runs one step. Kernel errors are checked against the step's
// expect_error and recorded on the result; only engine failures abort.
func (h *Harness) execute(ctx context.Context, i int, step Step, result *Result) error {
	k := h.engine.Kernel()
	id := result.Resolve(step.Process)

	var opErr error
	switch step.Do {
	case StepAdmit:
		p := h.engine.Admit(kernel.Request{
			From:     step.From,
			To:       step.To,
			Subject:  step.Subject,
			Content:  step.Content,
			Priority: step.Priority,
		})
		h.bind(result, step.As, p.ID)
	case StepTick:
		n := step.Count
		if n == 0 {
			n = 1
		}
		for range n {
			if _, err := h.engine.Step(ctx); err != nil {
				return err
			}
			h.engine.Wait()
			if err := h.collect(result); err != nil {
				return err
			}
		}
	case StepSuspend:
		opErr = k.SuspendProcess(id)
	case StepResume:
		opErr = k.ResumeProcess(id)
	case StepTerminate:
		opErr = k.TerminateProcess(id)
	case StepFork:
		var child kernel.Process
		child, opErr = k.ForkProcess(id, step.Subject, step.Content)
		if opErr == nil {
			h.bind(result, step.As, child.ID)
		}
	case StepSignal:
		opErr = k.SignalCompletion(id, step.Response)
	case StepUpdateContext:
		opErr = k.UpdateContext(id, func(c *kernel.CognitiveContext) {
			if step.Valence != nil {
				c.EmotionalValence = *step.Valence
			}
			if step.Arousal != nil {
				c.EmotionalArousal = *step.Arousal
			}
		})
		if opErr == nil && len(step.Recall) > 0 {
			opErr = k.FoldMemories(id, step.Recall)
		}
	case StepReap:
		n := k.Reap()
		if step.Reaped != nil && n != *step.Reaped {
			result.AddError(fmt.Sprintf("steps[%d]: reap released %d processes, expected %d", i, n, *step.Reaped))
		}
	default:
		return fmt.Errorf("unknown operation %q", step.Do)
	}

	h.logger.Info("scenario step executed", "step", i, "do", step.Do, "process", id, "error", opErr)
	if msg := checkStepError(step.ExpectError, opErr); msg != "" {
		result.AddError(fmt.Sprintf("steps[%d] (%s %s): %s", i, step.Do, step.Process, msg))
	}
	return nil
}

func (h *Harness) bind(result *Result, alias, id string) {
	if alias != "" {
		result.Aliases[alias] = id
	}
}

// collect moves buffered notifications into the trace.
func (h *Harness) collect(result *Result) error {
	for {
		select {
		case ev, ok := <-h.sub.C:
			if !ok {
				return nil
			}
			result.Trace = append(result.Trace, traceEventFrom(ev))
		default:
			if n := h.sub.Dropped(); n > 0 {
				return fmt.Errorf("trace dropped %d events", n)
			}
			return nil
		}
	}
}

func checkStepError(expect string, err error) string {
	switch expect {
	case "":
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
	case ErrorNotFound:
		if !kernel.IsNotFound(err) {
			return fmt.Sprintf("expected not_found error, got %v", err)
		}
	case ErrorTransition:
		if !kernel.IsTransitionError(err) {
			return fmt.Sprintf("expected transition error, got %v", err)
		}
	}
	return ""
}

func (s *Scenario) engineConfig() (config.Config, error) {
	cfg := config.Default()
	if o := s.Config; o != nil {
		if o.MaxConcurrent != nil {
			cfg.MaxConcurrent = *o.MaxConcurrent
		}
		if o.ActivationSteps != nil {
			cfg.ActivationSteps = *o.ActivationSteps
		}
		if o.CompletionCycles != nil {
			cfg.CompletionCycles = *o.CompletionCycles
		}
		if o.Seed != nil {
			cfg.Seed = *o.Seed
		}
	}
	cfg.SnapshotEvery = 0
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid scenario config: %w", err)
	}
	return cfg, nil
}

func (s *Scenario) traceKinds() ([]event.Kind, error) {
	if len(s.TraceKinds) == 0 {
		return DefaultTraceKinds, nil
	}
	kinds := make([]event.Kind, 0, len(s.TraceKinds))
	var errs []error
	for _, name := range s.TraceKinds {
		k, err := event.ParseKind(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		kinds = append(kinds, k)
	}
	return kinds, errors.Join(errs...)
}
