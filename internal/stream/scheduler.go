package stream

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/triadic/internal/event"
	"github.com/roach88/triadic/internal/stepclock"
	"github.com/roach88/triadic/internal/tensor"
)

// StreamCount is the number of concurrent streams.
const StreamCount = 3

// PhaseOffset is the step distance between neighbouring streams.
const PhaseOffset = stepclock.StreamCycleLen / StreamCount

// Params tunes the stream transitions.
type Params struct {
	DecayRate           float64
	ActivationThreshold float64
	StrengthenRate      float64
	MemoryCapacity      int
	PatternThreshold    float64
	// ConfidenceJitter is the largest fraction by which a pattern's
	// confidence may fall below its weight.
	ConfidenceJitter float64
	TensorDim        int
	Seed             uint64
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		DecayRate:           0.1,
		ActivationThreshold: 0.1,
		StrengthenRate:      0.1,
		MemoryCapacity:      7,
		PatternThreshold:    0.6,
		ConfidenceJitter:    0.2,
		TensorDim:           8,
		Seed:                1,
	}
}

// TickResult reports what one tick did.
type TickResult struct {
	Tick  int64
	Steps [StreamCount]int
	// Synchronized is set when the stream positions formed a triad; Triad
	// and Integrated then hold the triad and the merged tensor.
	Synchronized bool
	Triad        stepclock.Triad
	Integrated   tensor.Tensor
	// CombineErr is set when the merge at a synchronization point failed.
	// The tick itself still completed.
	CombineErr error
}

// Scheduler owns the three stream states and advances them together.
//
// Not safe for concurrent use: the kernel calls it from its tick under its
// own lock.
type Scheduler struct {
	params  Params
	emit    event.Emitter
	rng     *rand.Rand
	streams [StreamCount]*streamState
	tick    int64

	lastTriadic  tensor.Tensor
	lastTetradic tensor.Tensor
	skipped      int64
}

// NewScheduler creates the three streams at steps 1, 5 and 9.
func NewScheduler(p Params, emit event.Emitter) *Scheduler {
	if emit == nil {
		emit = event.Discard
	}
	if p.MemoryCapacity <= 0 {
		p.MemoryCapacity = DefaultParams().MemoryCapacity
	}
	if p.TensorDim <= 0 {
		p.TensorDim = DefaultParams().TensorDim
	}
	s := &Scheduler{
		params: p,
		emit:   emit,
		rng:    rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)),
	}
	for k := 0; k < StreamCount; k++ {
		step := (k*PhaseOffset)%stepclock.StreamCycleLen + 1
		s.streams[k] = &streamState{
			id:          stepclock.StreamID(k + 1),
			role:        roles[k],
			currentStep: step,
			profile:     stepclock.Cycle12.MustAt(step),
			activations: make(map[string]float64),
			state:       tensor.Random(s.rng, 0.1, p.TensorDim),
		}
	}
	return s
}

// Params returns the scheduler's tuning.
func (s *Scheduler) Params() Params {
	return s.params
}

// Ticks returns how many ticks have run.
func (s *Scheduler) Ticks() int64 {
	return s.tick
}

// Tick runs every stream's transition for its current step, advances all
// streams by one step and checks for synchronization.
func (s *Scheduler) Tick() TickResult {
	s.tick++
	res := TickResult{Tick: s.tick}

	for k, st := range s.streams {
		st.profile = stepclock.Cycle12.MustAt(st.currentStep)
		s.transition(st)
		if err := s.evolve(st); err != nil {
			slog.Warn("stream tensor update skipped", "stream", st.id, "tick", s.tick, "error", err)
			s.skipped++
		}
		st.currentStep = stepclock.Cycle12.Next(st.currentStep)
		st.profile = stepclock.Cycle12.MustAt(st.currentStep)
		res.Steps[k] = st.currentStep
	}

	triad, ok := s.CheckSynchronization()
	if !ok {
		return res
	}
	res.Synchronized = true
	res.Triad = triad
	s.emit.Emit(event.Event{
		Tick:  s.tick,
		Kind:  event.KindTriadConvergence,
		Triad: []int{triad[0], triad[1], triad[2]},
	})

	integrated, err := s.integrateTriad()
	if err != nil {
		slog.Warn("triadic combination skipped", "tick", s.tick, "triad", triad, "error", err)
		s.skipped++
		res.CombineErr = err
		return res
	}
	s.lastTriadic = integrated
	res.Integrated = integrated
	return res
}

// CheckSynchronization reports whether the current stream steps, as a set,
// form one of the four synchronization triads.
func (s *Scheduler) CheckSynchronization() (stepclock.Triad, bool) {
	steps := make([]int, StreamCount)
	for k, st := range s.streams {
		steps[k] = st.currentStep
	}
	return stepclock.MatchTriad(steps)
}

// integrateTriad merges the three stream tensors through a triadic face.
func (s *Scheduler) integrateTriad() (tensor.Tensor, error) {
	face, err := tensor.NewTriadicFace([3]int{1, 2, 3}, s.streams[0].state, s.streams[1].state, s.streams[2].state)
	if err != nil {
		return tensor.Tensor{}, err
	}
	threads, err := tensor.ExtractThreadsFromFace(face)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.TriadicIntegrate(threads[0], threads[1], threads[2])
}

// IntegrateCycle runs the tetradic combination over the three stream
// tensors plus a fourth thread: the mean of the three triad threads of the
// last triadic integration. Called by the kernel at each full-cycle
// boundary. Failures are counted as skipped combinations.
func (s *Scheduler) IntegrateCycle() (tensor.Tensor, error) {
	out, err := s.integrateCycle()
	if err != nil {
		s.skipped++
		slog.Warn("tetradic combination skipped", "tick", s.tick, "error", err)
		return tensor.Tensor{}, err
	}
	s.lastTetradic = out
	return out, nil
}

func (s *Scheduler) integrateCycle() (tensor.Tensor, error) {
	if s.lastTriadic.IsEmpty() {
		return tensor.Tensor{}, fmt.Errorf("no triadic integration to fold")
	}
	dim := s.params.TensorDim
	flat := s.lastTriadic.Data()
	if len(flat) != 3*dim {
		return tensor.Tensor{}, &tensor.ShapeError{Op: "integrate_cycle", Left: s.lastTriadic.Shape(), Right: []int{3 * dim}}
	}
	fourth, err := tensor.MeanOf(
		tensor.Vector(flat[:dim]...),
		tensor.Vector(flat[dim:2*dim]...),
		tensor.Vector(flat[2*dim:]...),
	)
	if err != nil {
		return tensor.Tensor{}, err
	}
	bundle, err := tensor.NewTetradicBundle([4]tensor.Tensor{
		s.streams[0].state, s.streams[1].state, s.streams[2].state, fourth,
	})
	if err != nil {
		return tensor.Tensor{}, err
	}
	vertices, err := tensor.ExtractVerticesFromBundle(bundle)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.TetradicIntegrate(vertices)
}

// Offer places an item in a stream's working memory. It is seen by that
// stream's next transition.
func (s *Scheduler) Offer(id stepclock.StreamID, item Item) error {
	if id < stepclock.Stream1 || id > stepclock.Stream3 {
		return fmt.Errorf("offer to %s: not a stream", id)
	}
	s.streams[id-1].offer(item)
	return nil
}

// Snapshot returns a copy of every stream's state.
func (s *Scheduler) Snapshot() [StreamCount]State {
	var out [StreamCount]State
	for k, st := range s.streams {
		out[k] = st.snapshot()
	}
	return out
}

// Stream returns a copy of one stream's state.
func (s *Scheduler) Stream(id stepclock.StreamID) (State, bool) {
	if id < stepclock.Stream1 || id > stepclock.Stream3 {
		return State{}, false
	}
	return s.streams[id-1].snapshot(), true
}

// Coherence measures agreement across the streams as one minus the spread
// of their salience values, clamped to [0, 1].
func (s *Scheduler) Coherence() float64 {
	lo, hi := s.streams[0].attention.Salience, s.streams[0].attention.Salience
	for _, st := range s.streams[1:] {
		lo = min(lo, st.attention.Salience)
		hi = max(hi, st.attention.Salience)
	}
	return min(1, max(0, 1-(hi-lo)))
}

// LastIntegration returns the most recent triadic and tetradic results.
// Either may be empty.
func (s *Scheduler) LastIntegration() (triadic, tetradic tensor.Tensor) {
	return s.lastTriadic, s.lastTetradic
}

// SkippedCombinations counts merges and tensor updates that failed.
func (s *Scheduler) SkippedCombinations() int64 {
	return s.skipped
}
