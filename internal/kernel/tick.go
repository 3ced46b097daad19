package kernel

import (
	"slices"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/stepclock"
	"github.com/roach88/triadic/internal/stream"
)

// TickReport summarizes one scheduling pass. The engine uses the
// transition lists to drive collaborator work.
type TickReport struct {
	Tick int64
	// Step is the kernel's cycle position after the tick.
	Step     int
	Advanced []string
	// Activated lists processes that entered ACTIVE this tick.
	Activated []string
	// Processing lists processes that entered PROCESSING this tick.
	Processing []string
	Completed  []string

	Synchronized  bool
	Triad         stepclock.Triad
	CycleComplete bool
}

// Tick runs one synchronous pass: the streams advance, then up to
// MaxConcurrent runnable processes advance one step each.
func (k *Kernel) Tick() TickReport {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.tick++
	res := k.streams.Tick()
	rep := TickReport{
		Tick:         k.tick,
		Advanced:     []string{},
		Activated:    []string{},
		Processing:   []string{},
		Completed:    []string{},
		Synchronized: res.Synchronized,
		Triad:        res.Triad,
	}

	// The kernel's position follows the leading stream.
	k.currentStep = res.Steps[0]
	selected := k.selectRunnable()
	for _, p := range selected {
		k.advance(p, res, &rep)
	}

	k.metrics.TotalSteps++
	k.metrics.CognitiveLoad = float64(len(selected)) / float64(k.cfg.MaxConcurrent)
	k.metrics.StreamCoherence = clampTo(k.streams.Coherence(), 0, 1)

	if k.metrics.TotalSteps%stepclock.StreamCycleLen == 0 {
		k.metrics.TotalCycles++
		rep.CycleComplete = true
		k.emit.Emit(event.Event{
			Tick:  k.tick,
			Kind:  event.KindCycleComplete,
			Cycle: k.metrics.TotalCycles,
		})
		// Failures are counted by the stream scheduler and logged there.
		_, _ = k.streams.IntegrateCycle()
	}
	k.metrics.SkippedCombinations = k.streams.SkippedCombinations()
	rep.Step = k.currentStep
	return rep
}

// selectRunnable orders runnable processes by descending priority, then
// arrival, and keeps the first MaxConcurrent.
func (k *Kernel) selectRunnable() []*Process {
	var runnable []*Process
	k.procs.each(func(p *Process) {
		if p.State.Runnable() {
			runnable = append(runnable, p)
		}
	})
	slices.SortStableFunc(runnable, func(a, b *Process) int {
		if a.Priority != b.Priority {
			if a.Priority > b.Priority {
				return -1
			}
			return 1
		}
		switch {
		case a.Arrival < b.Arrival:
			return -1
		case a.Arrival > b.Arrival:
			return 1
		}
		return 0
	})
	if len(runnable) > k.cfg.MaxConcurrent {
		runnable = runnable[:k.cfg.MaxConcurrent]
	}
	return runnable
}

// advance moves p one step along the shared cycle. At most one lifecycle
// transition happens.
func (k *Kernel) advance(p *Process, res stream.TickResult, rep *TickReport) {
	from := p.State
	p.CurrentStep = k.currentStep
	p.StepsTaken++

	k.foldStream(p)
	if res.Synchronized && res.Triad.Contains(p.CurrentStep) {
		k.couple(p, res.Triad)
	}

	to := from
	switch from {
	case StatePending:
		to = StateActive
		rep.Activated = append(rep.Activated, p.ID)
	case StateActive:
		if p.StepsTaken >= k.cfg.ActivationSteps {
			to = StateProcessing
			rep.Processing = append(rep.Processing, p.ID)
		}
	case StateProcessing:
		if p.completionSignaled || p.StepsTaken >= k.cfg.CompletionCycles*stepclock.StreamCycleLen {
			to = StateCompleted
			p.CompletedTick = k.tick
			k.metrics.ProcessesCompleted++
			k.latency.add(p.CompletedTick - p.CreatedTick)
			k.metrics.AverageLatency = k.latency.mean()
			rep.Completed = append(rep.Completed, p.ID)
		}
	}
	if to != from {
		k.log.Debug("process state change", "process_id", p.ID, "from", from, "to", to, "tick", k.tick)
	}
	p.State = to
	p.History = append(p.History, HistoryEntry{
		Tick:     k.tick,
		Step:     p.CurrentStep,
		State:    to,
		Salience: p.Context.SalienceScore,
	})
	rep.Advanced = append(rep.Advanced, p.ID)

	k.emit.Emit(event.Event{
		Tick:      k.tick,
		Kind:      event.KindStepAdvance,
		ProcessID: p.ID,
		Step:      p.CurrentStep,
		State:     string(to),
	})
}

// foldStream ties the process to the primary stream of its step: salience
// drifts toward that stream's salience, attention rises while the stream
// focuses on the process, and the process content is offered to the
// stream's working memory. Integration steps leave the context alone.
func (k *Kernel) foldStream(p *Process) {
	primary := stepclock.PrimaryStream(p.CurrentStep)
	st, ok := k.streams.Stream(primary)
	if !ok {
		return
	}
	c := &p.Context
	c.SalienceScore = 0.8*c.SalienceScore + 0.2*st.Attention.Salience
	if st.Attention.Focus == p.ID {
		c.AttentionWeight += 0.1
	} else {
		c.AttentionWeight *= 0.95
	}
	c.clamp()

	relevance := clampTo(0.5*c.SalienceScore+0.5*c.AttentionWeight+0.25*c.EmotionalArousal, 0, 1)
	item := stream.Item{
		ID:        p.ID,
		Content:   p.Subject,
		Relevance: relevance,
		Novelty:   1 / float64(1+p.StepsTaken),
	}
	if err := k.streams.Offer(primary, item); err != nil {
		k.log.Warn("stream offer failed", "process_id", p.ID, "stream", primary, "error", err)
	}
}

func (k *Kernel) couple(p *Process, t stepclock.Triad) {
	label := couplingLabel(t)
	if slices.Contains(p.Context.ActiveCouplings, label) {
		return
	}
	p.Context.ActiveCouplings = append(p.Context.ActiveCouplings, label)
	k.emit.Emit(event.Event{
		Tick:      k.tick,
		Kind:      event.KindCouplingActivated,
		ProcessID: p.ID,
		Coupling:  label,
		Triad:     []int{t[0], t[1], t[2]},
	})
}
