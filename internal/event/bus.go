package event

import (
	"log/slog"
	"sync"
)

// DefaultBuffer is the channel capacity for subscriptions created with a
// non-positive buffer.
const DefaultBuffer = 256

// Subscription receives published events on C until cancelled.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	filter  map[Kind]bool
	dropped int64
	bus     *Bus
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscription) Dropped() int64 {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Cancel detaches the subscription and closes C. Idempotent.
func (s *Subscription) Cancel() {
	s.bus.unsubscribe(s)
}

// Bus stamps events with sequence numbers and fans them out to
// subscribers.
//
// Thread-safety: all methods are safe for concurrent use.
type Bus struct {
	mu    sync.Mutex
	clock *Clock
	subs  []*Subscription
}

// NewBus creates a bus numbering events from clock. A nil clock starts a
// fresh one at 0.
func NewBus(clock *Clock) *Bus {
	if clock == nil {
		clock = NewClock()
	}
	return &Bus{clock: clock}
}

// Clock returns the bus's sequence clock.
func (b *Bus) Clock() *Clock {
	return b.clock
}

// Subscribe registers a subscriber. With no kinds it receives every event;
// otherwise only the listed kinds.
func (b *Bus) Subscribe(buffer int, kinds ...Kind) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, bus: b}
	if len(kinds) > 0 {
		s.filter = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.filter[k] = true
		}
	}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Emit implements Emitter by publishing ev.
func (b *Bus) Emit(ev Event) {
	b.Publish(ev)
}

// Publish stamps ev with the next sequence number and delivers it without
// blocking. Events outside the vocabulary are logged and dropped.
// Returns the stamped event.
func (b *Bus) Publish(ev Event) Event {
	if !ev.Kind.Valid() {
		slog.Error("dropping event with unknown kind", "kind", ev.Kind)
		return ev
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ev.Seq = b.clock.Next()
	for _, s := range b.subs {
		if s.filter != nil && !s.filter[ev.Kind] {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped++
		}
	}
	return ev
}

// Close cancels every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		close(s.ch)
	}
}

// Recorder is an Emitter that keeps every event in memory, stamping its own
// sequence numbers. Used by the scenario harness and tests.
type Recorder struct {
	mu     sync.Mutex
	clock  Clock
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.Seq = r.clock.Next()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events have kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

// Reset discards recorded events and restarts numbering.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.clock.seq.Store(0)
}

// Fanout emits to several emitters in order.
type Fanout []Emitter

// Emit implements Emitter.
func (f Fanout) Emit(ev Event) {
	for _, e := range f {
		e.Emit(ev)
	}
}
