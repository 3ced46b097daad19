package kernel

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/stepclock"
	"github.com/roach88/triadic/internal/stream"
)

// Config tunes scheduling.
type Config struct {
	// MaxConcurrent bounds how many processes advance per tick.
	MaxConcurrent int
	// ActivationSteps is how many steps an ACTIVE process takes before it
	// moves to PROCESSING.
	ActivationSteps int
	// CompletionCycles is how many full 12-step traversals a process makes
	// before PROCESSING completes on its own. Steps are counted from the
	// process's first step, not from activation.
	CompletionCycles int
	// LatencyWindow is the number of recent completions averaged into
	// Metrics.AverageLatency.
	LatencyWindow int
	Stream        stream.Params
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:    4,
		ActivationSteps:  4,
		CompletionCycles: 1,
		LatencyWindow:    32,
		Stream:           stream.DefaultParams(),
	}
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithEmitter routes notifications to emit.
func WithEmitter(emit event.Emitter) Option {
	return func(k *Kernel) { k.emit = emit }
}

// WithIDGenerator sets the process id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(k *Kernel) { k.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) { k.log = l }
}

// Kernel is the process scheduler. All methods are safe for concurrent use.
type Kernel struct {
	mu sync.Mutex

	cfg     Config
	emit    event.Emitter
	ids     IDGenerator
	log     *slog.Logger
	streams *stream.Scheduler
	procs   *arena

	tick        int64
	currentStep int
	arrivals    int64
	metrics     Metrics
	latency     *latencyWindow
}

// New creates a kernel. Zero-valued config fields fall back to
// DefaultConfig.
func New(cfg Config, opts ...Option) *Kernel {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.ActivationSteps <= 0 {
		cfg.ActivationSteps = def.ActivationSteps
	}
	if cfg.CompletionCycles <= 0 {
		cfg.CompletionCycles = def.CompletionCycles
	}
	if cfg.LatencyWindow <= 0 {
		cfg.LatencyWindow = def.LatencyWindow
	}
	if cfg.Stream == (stream.Params{}) {
		cfg.Stream = def.Stream
	}
	k := &Kernel{
		cfg:         cfg,
		emit:        event.Discard,
		ids:         UUIDv7Generator{},
		log:         slog.Default(),
		procs:       newArena(),
		currentStep: 1,
		latency:     newLatencyWindow(cfg.LatencyWindow),
		metrics:     Metrics{StreamCoherence: 1.0},
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.emit == nil {
		k.emit = event.Discard
	}
	if k.log == nil {
		k.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	k.streams = stream.NewScheduler(cfg.Stream, k.emit)
	return k
}

// Config returns the effective configuration.
func (k *Kernel) Config() Config {
	return k.cfg
}

// CreateProcess admits a new PENDING process and returns a copy of it.
func (k *Kernel) CreateProcess(req Request) Process {
	k.mu.Lock()
	defer k.mu.Unlock()

	p := k.newProcess(req)
	k.procs.insert(p)
	k.log.Info("process created", "process_id", p.ID, "priority", p.Priority, "tick", k.tick)
	k.emit.Emit(event.Event{
		Tick:      k.tick,
		Kind:      event.KindProcessCreated,
		ProcessID: p.ID,
		Priority:  p.Priority,
		State:     string(p.State),
	})
	return p.Clone()
}

func (k *Kernel) newProcess(req Request) *Process {
	k.arrivals++
	return &Process{
		ID:          k.ids.Generate(),
		MessageID:   req.MessageID,
		From:        req.From,
		To:          slices.Clone(req.To),
		Subject:     req.Subject,
		Content:     req.Content,
		Priority:    req.Priority,
		State:       StatePending,
		Context:     newContext(),
		History:     []HistoryEntry{},
		ChildIDs:    []string{},
		Arrival:     k.arrivals,
		CreatedTick: k.tick,
	}
}

// Lookup returns a copy of the process with the given id.
func (k *Kernel) Lookup(id string) (Process, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs.lookup(id)
	if !ok {
		return Process{}, false
	}
	return p.Clone(), true
}

// Handle returns the arena handle for id.
func (k *Kernel) Handle(id string) (Handle, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.procs.handle(id)
}

// Get resolves a handle. Handles of reaped processes resolve to nothing,
// even when their slot has been reused.
func (k *Kernel) Get(h Handle) (Process, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs.get(h)
	if !ok {
		return Process{}, false
	}
	return p.Clone(), true
}

// SuspendProcess moves an ACTIVE process to SUSPENDED.
func (k *Kernel) SuspendProcess(id string) error {
	return k.transition(id, "suspend", StateActive, StateSuspended)
}

// ResumeProcess moves a SUSPENDED process back to PENDING.
func (k *Kernel) ResumeProcess(id string) error {
	return k.transition(id, "resume", StateSuspended, StatePending)
}

func (k *Kernel) transition(id, op string, from, to State) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs.lookup(id)
	if !ok {
		return notFound(id)
	}
	if p.State != from {
		return &TransitionError{ProcessID: id, Op: op, From: p.State}
	}
	k.setState(p, to, op)
	return nil
}

// TerminateProcess moves a process to TERMINATED. Terminating a finished
// process is a no-op.
func (k *Kernel) TerminateProcess(id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs.lookup(id)
	if !ok {
		return notFound(id)
	}
	if p.State.Finished() {
		return nil
	}
	k.setState(p, StateTerminated, "terminate")
	return nil
}

func (k *Kernel) setState(p *Process, to State, note string) {
	k.log.Debug("process state change", "process_id", p.ID, "from", p.State, "to", to, "tick", k.tick)
	p.State = to
	p.History = append(p.History, HistoryEntry{
		Tick:     k.tick,
		Step:     p.CurrentStep,
		State:    to,
		Salience: p.Context.SalienceScore,
		Note:     note,
	})
}

// ForkProcess creates a child of parentID. The child gets a copy of the
// parent's context as it is now. An empty subject defaults to
// "Re: <parent subject>".
func (k *Kernel) ForkProcess(parentID, subject, content string) (Process, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	parent, ok := k.procs.lookup(parentID)
	if !ok {
		return Process{}, notFound(parentID)
	}
	if subject == "" {
		subject = "Re: " + parent.Subject
	}
	child := k.newProcess(Request{
		MessageID: parent.MessageID,
		From:      parent.From,
		To:        parent.To,
		Subject:   subject,
		Content:   content,
		Priority:  parent.Priority,
	})
	child.Context = parent.Context.Clone()
	child.ParentID = parent.ID
	parent.ChildIDs = append(parent.ChildIDs, child.ID)
	k.procs.insert(child)

	k.log.Info("process forked", "process_id", child.ID, "parent_id", parent.ID, "tick", k.tick)
	k.emit.Emit(event.Event{
		Tick:      k.tick,
		Kind:      event.KindProcessCreated,
		ProcessID: child.ID,
		ParentID:  parent.ID,
		Priority:  child.Priority,
		State:     string(child.State),
	})
	return child.Clone(), nil
}

// UpdateContext applies fn to the process's cognitive context. Bounded
// fields are clamped afterwards.
func (k *Kernel) UpdateContext(id string, fn func(*CognitiveContext)) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs.lookup(id)
	if !ok {
		return notFound(id)
	}
	fn(&p.Context)
	if p.Context.RelevantMemories == nil {
		p.Context.RelevantMemories = []string{}
	}
	if p.Context.ActiveCouplings == nil {
		p.Context.ActiveCouplings = []string{}
	}
	p.Context.clamp()
	return nil
}

// FoldMemories appends memory references the process does not hold yet.
func (k *Kernel) FoldMemories(id string, memories []string) error {
	return k.UpdateContext(id, func(c *CognitiveContext) {
		for _, m := range memories {
			if !slices.Contains(c.RelevantMemories, m) {
				c.RelevantMemories = append(c.RelevantMemories, m)
			}
		}
	})
}

// SignalCompletion records a response for the process. A PROCESSING process
// completes on its next scheduled step; earlier states hold the signal
// until they reach PROCESSING.
func (k *Kernel) SignalCompletion(id, response string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs.lookup(id)
	if !ok {
		return notFound(id)
	}
	if p.State.Finished() {
		return &TransitionError{ProcessID: id, Op: "complete", From: p.State}
	}
	p.Response = response
	p.completionSignaled = true
	return nil
}

// Reap releases finished processes. Parent and child links join processes
// into families, and a family is released only when every member is
// finished, so no surviving process ever links to a released one. It
// returns how many were released.
func (k *Kernel) Reap() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	seen := make(map[string]bool)
	var victims []string
	k.procs.each(func(p *Process) {
		if seen[p.ID] {
			return
		}
		family := k.family(p.ID, seen)
		for _, id := range family {
			if q, ok := k.procs.lookup(id); ok && !q.State.Finished() {
				return
			}
		}
		victims = append(victims, family...)
	})
	for _, id := range victims {
		k.procs.release(id)
	}
	if len(victims) > 0 {
		k.log.Debug("processes reaped", "count", len(victims), "tick", k.tick)
	}
	return len(victims)
}

// family returns the ids connected to id through parent and child links
// that are still in the table, marking each as seen.
func (k *Kernel) family(id string, seen map[string]bool) []string {
	var out []string
	queue := []string{id}
	seen[id] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		p, ok := k.procs.lookup(cur)
		if !ok {
			continue
		}
		out = append(out, cur)
		links := append([]string{p.ParentID}, p.ChildIDs...)
		for _, l := range links {
			if l != "" && !seen[l] {
				seen[l] = true
				queue = append(queue, l)
			}
		}
	}
	return out
}

// Len returns the number of processes in the table.
func (k *Kernel) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.procs.len()
}

// Metrics returns a copy of the current metrics.
func (k *Kernel) Metrics() Metrics {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.metrics
}

// Snapshot is a point-in-time copy of the whole kernel.
type Snapshot struct {
	Tick        int64                            `json:"tick"`
	CurrentStep int                              `json:"current_step"`
	CycleNumber int64                            `json:"cycle_number"`
	Streams     [stream.StreamCount]stream.State `json:"streams"`
	Processes   []Process                        `json:"processes"`
	// Active lists ids in ACTIVE or PROCESSING.
	Active  []string `json:"active"`
	Metrics Metrics  `json:"metrics"`
}

// Snapshot returns a copy of the kernel state.
func (k *Kernel) Snapshot() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := Snapshot{
		Tick:        k.tick,
		CurrentStep: k.currentStep,
		CycleNumber: k.metrics.TotalCycles,
		Streams:     k.streams.Snapshot(),
		Processes:   make([]Process, 0, k.procs.len()),
		Active:      []string{},
		Metrics:     k.metrics,
	}
	k.procs.each(func(p *Process) {
		s.Processes = append(s.Processes, p.Clone())
		if p.State == StateActive || p.State == StateProcessing {
			s.Active = append(s.Active, p.ID)
		}
	})
	return s
}

// couplingLabel names the coupling a process joins at a triad convergence.
func couplingLabel(t stepclock.Triad) string {
	return fmt.Sprintf("triad-%d-%d-%d", t[0], t[1], t[2])
}
