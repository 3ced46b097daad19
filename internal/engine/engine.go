package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/triadic/internal/collab"
	"github.com/roach88/triadic/internal/config"
	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/kernel"
)

const (
	opComplete = "complete"
	opSearch   = "search_memories"

	// journalBuffer is the journal subscription capacity. It only needs to
	// hold one tick's worth of events; Admit flushes its own.
	journalBuffer = 4096
)

// Journal persists events and process snapshots. *store.Store implements
// it.
type Journal interface {
	AppendEvent(ctx context.Context, ev event.Event) error
	WriteSnapshot(ctx context.Context, tick int64, procs []kernel.Process) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompleter sets the completer asked for a response when a process
// reaches PROCESSING.
func WithCompleter(c collab.Completer) Option {
	return func(e *Engine) { e.completer = c }
}

// WithMemoryStore sets the store searched when a process becomes ACTIVE.
func WithMemoryStore(m collab.MemoryStore) Option {
	return func(e *Engine) { e.memories = m }
}

// WithJournal persists every event and periodic snapshots to j.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithIDGenerator sets the process id source.
func WithIDGenerator(g kernel.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithClock numbers events from c, e.g. resuming after a journal's last
// seq.
func WithClock(c *event.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger for the engine and its kernel.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxDispatches bounds completion requests per process.
func WithMaxDispatches(n int) Option {
	return func(e *Engine) { e.maxDispatches = n }
}

// Engine drives the kernel on a fixed cadence and runs collaborator calls
// between ticks.
//
// Thread-safety model:
//   - Admit, Kernel, Bus: safe from any goroutine
//   - Step: serialized internally; Run calls it from one goroutine
//   - collaborator goroutines only enqueue results, never touch the kernel
type Engine struct {
	cfg       config.Config
	kernel    *kernel.Kernel
	bus       *event.Bus
	clock     *event.Clock
	ids       kernel.IDGenerator
	log       *slog.Logger
	completer collab.Completer
	memories  collab.MemoryStore
	journal   Journal
	sub       *event.Subscription
	retry     collab.RetryPolicy

	results       *resultQueue
	maxDispatches int
	quota         *QuotaEnforcer
	// rng seeds per-call jitter sources. Only Step touches it.
	rng    *rand.Rand
	stepMu sync.Mutex
	wg     sync.WaitGroup

	// journalMu serializes journal flushes from Step and Admit.
	journalMu   sync.Mutex
	droppedSeen int64
	admitErrs   []error
}

// New builds an engine and its kernel from cfg.
func New(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:           cfg,
		log:           slog.Default(),
		retry:         cfg.Retry(),
		results:       newResultQueue(),
		maxDispatches: DefaultMaxDispatches,
		rng:           rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda3e39cb94b95bdb)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.bus = event.NewBus(e.clock)
	kopts := []kernel.Option{kernel.WithEmitter(e.bus), kernel.WithLogger(e.log)}
	if e.ids != nil {
		kopts = append(kopts, kernel.WithIDGenerator(e.ids))
	}
	e.kernel = kernel.New(cfg.Kernel(), kopts...)
	e.quota = NewQuotaEnforcer(e.maxDispatches)
	if e.journal != nil {
		e.sub = e.bus.Subscribe(journalBuffer)
	}
	return e
}

// Kernel returns the engine's kernel.
func (e *Engine) Kernel() *kernel.Kernel {
	return e.kernel
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Admit creates a process. It is scheduled from the next tick. With a
// journal its process_created event is persisted before Admit returns; a
// journal failure is reported by the next Step.
func (e *Engine) Admit(req kernel.Request) kernel.Process {
	p := e.kernel.CreateProcess(req)
	if e.sub != nil {
		if err := e.flushJournal(context.Background()); err != nil {
			e.log.Error("journal flush after admit failed", "process_id", p.ID, "error", err)
			e.journalMu.Lock()
			e.admitErrs = append(e.admitErrs, err)
			e.journalMu.Unlock()
		}
	}
	return p
}

// Run ticks every cfg.TickInterval until ctx is done or, when maxTicks is
// positive, until the kernel has run maxTicks ticks. Errors from single
// ticks are logged and do not stop the loop.
func (e *Engine) Run(ctx context.Context, maxTicks int64) error {
	interval := e.cfg.TickInterval
	if interval <= 0 {
		interval = config.Default().TickInterval
	}
	e.log.Info("engine starting", "interval", interval, "max_ticks", maxTicks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopping: context cancelled")
			return ctx.Err()
		case <-ticker.C:
			rep, err := e.Step(ctx)
			switch {
			case err == nil:
			case IsQuotaError(err) || IsCollaboratorError(err):
				e.log.Warn("tick completed with collaborator errors", "tick", rep.Tick, "error", err)
			default:
				e.log.Error("tick completed with errors", "tick", rep.Tick, "error", err)
			}
			if maxTicks > 0 && rep.Tick >= maxTicks {
				e.log.Info("engine stopping: tick limit reached", "tick", rep.Tick)
				return nil
			}
		}
	}
}

// Step runs one tick: fold finished collaborator results, tick the kernel,
// dispatch collaborator work for the tick's transitions, then persist.
//
// The returned error joins every *RuntimeError observed along the way:
// collaborator calls that failed on every retry, processes whose dispatch
// quota ran out, and journal failures. The tick itself always completes.
func (e *Engine) Step(ctx context.Context) (kernel.TickReport, error) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	errs := e.fold(ctx)
	rep := e.kernel.Tick()
	errs = append(errs, e.dispatch(ctx, rep)...)
	for _, id := range rep.Completed {
		e.quota.Forget(id)
	}
	if rep.CycleComplete {
		m := e.kernel.Metrics()
		e.log.Debug("cycle complete",
			"cycle", m.TotalCycles,
			"completed", m.ProcessesCompleted,
			"coherence", m.StreamCoherence,
			"load", m.CognitiveLoad,
		)
	}

	e.journalMu.Lock()
	errs = append(errs, e.admitErrs...)
	e.admitErrs = nil
	e.journalMu.Unlock()
	if err := e.flushJournal(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.journal != nil && e.cfg.SnapshotEvery > 0 && rep.Tick%int64(e.cfg.SnapshotEvery) == 0 {
		snap := e.kernel.Snapshot()
		if err := e.journal.WriteSnapshot(ctx, snap.Tick, snap.Processes); err != nil {
			errs = append(errs, journalError(fmt.Sprintf("snapshot at tick %d", snap.Tick), err))
		}
	}
	return rep, errors.Join(errs...)
}

// Wait blocks until every in-flight collaborator call has queued its
// result.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close waits for collaborator calls, stops accepting results and flushes
// the journal. The engine must not be stepped afterwards.
func (e *Engine) Close(ctx context.Context) error {
	e.wg.Wait()
	e.results.Close()
	err := e.flushJournal(context.WithoutCancel(ctx))
	if e.sub != nil {
		e.sub.Cancel()
	}
	return err
}

// fold applies queued collaborator results to the kernel. It returns the
// failures it folded and any quota exhaustion hit while re-dispatching.
func (e *Engine) fold(ctx context.Context) []error {
	var errs []error
	for _, r := range e.results.Drain() {
		switch r.Kind {
		case ResultMemories:
			if err := e.kernel.FoldMemories(r.ProcessID, r.Memories); err != nil {
				e.log.Warn("memory fold skipped", "process_id", r.ProcessID, "error", err)
			}
		case ResultCompletion:
			if !r.Completion.Done {
				e.log.Debug("completion not final", "process_id", r.ProcessID)
				continue
			}
			if err := e.kernel.SignalCompletion(r.ProcessID, r.Completion.Text); err != nil {
				e.log.Warn("completion signal skipped", "process_id", r.ProcessID, "error", err)
			}
		case ResultFailure:
			e.log.Warn("collaborator call failed", "process_id", r.ProcessID, "op", r.Op, "error", r.Err)
			errs = append(errs, r.Err)
			if r.Op == opComplete {
				if err := e.requestCompletion(ctx, r.ProcessID); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errs
}

func (e *Engine) dispatch(ctx context.Context, rep kernel.TickReport) []error {
	if e.memories != nil {
		for _, id := range rep.Activated {
			e.searchMemories(ctx, id)
		}
	}
	var errs []error
	if e.completer != nil {
		for _, id := range rep.Processing {
			if err := e.requestCompletion(ctx, id); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// callRNG derives an independent jitter source for one collaborator call.
// Must be called from Step.
func (e *Engine) callRNG() *rand.Rand {
	return rand.New(rand.NewPCG(e.rng.Uint64(), e.rng.Uint64()))
}

func (e *Engine) searchMemories(ctx context.Context, id string) {
	p, ok := e.kernel.Lookup(id)
	if !ok {
		return
	}
	query := p.Subject + " " + p.Content
	limit := e.cfg.MemorySearchLimit
	rng := e.callRNG()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		found, err := collab.Retry(ctx, opSearch, e.retry, rng, func(ctx context.Context) ([]collab.Memory, error) {
			return e.memories.Search(ctx, query, limit)
		})
		if err != nil {
			e.results.Enqueue(Result{Kind: ResultFailure, ProcessID: id, Op: opSearch, Err: collaboratorError(id, opSearch, err)})
			return
		}
		ids := make([]string, len(found))
		for i, m := range found {
			ids[i] = m.ID
		}
		e.results.Enqueue(Result{Kind: ResultMemories, ProcessID: id, Op: opSearch, Memories: ids})
	}()
}

// requestCompletion asks the completer for a response in the background.
// It returns a quota error when the process has no dispatches left.
func (e *Engine) requestCompletion(ctx context.Context, id string) error {
	if e.completer == nil {
		return nil
	}
	p, ok := e.kernel.Lookup(id)
	if !ok || p.State.Finished() {
		return nil
	}
	if err := e.quota.Check(id); err != nil {
		e.log.Warn("collaborator quota exhausted", "process_id", id, "error", err)
		return quotaError(id, err)
	}
	prompt := collab.Prompt{
		ProcessID: p.ID,
		Subject:   p.Subject,
		Content:   p.Content,
		Memories:  p.Context.RelevantMemories,
		Valence:   p.Context.EmotionalValence,
		Arousal:   p.Context.EmotionalArousal,
	}

	rng := e.callRNG()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		out, err := collab.Retry(ctx, opComplete, e.retry, rng, func(ctx context.Context) (collab.Completion, error) {
			return e.completer.Complete(ctx, prompt)
		})
		if err != nil {
			e.results.Enqueue(Result{Kind: ResultFailure, ProcessID: id, Op: opComplete, Err: collaboratorError(id, opComplete, err)})
			return
		}
		e.results.Enqueue(Result{Kind: ResultCompletion, ProcessID: id, Op: opComplete, Completion: out})
	}()
	return nil
}

// flushJournal appends every buffered event to the journal.
func (e *Engine) flushJournal(ctx context.Context) error {
	if e.sub == nil {
		return nil
	}
	e.journalMu.Lock()
	defer e.journalMu.Unlock()
	var errs []error
	for {
		select {
		case ev, ok := <-e.sub.C:
			if !ok {
				return errors.Join(errs...)
			}
			if err := e.journal.AppendEvent(ctx, ev); err != nil {
				errs = append(errs, journalError(fmt.Sprintf("append event %d", ev.Seq), err))
			}
		default:
			if n := e.sub.Dropped(); n > e.droppedSeen {
				e.log.Warn("journal dropped events", "count", n-e.droppedSeen)
				e.droppedSeen = n
			}
			return errors.Join(errs...)
		}
	}
}
