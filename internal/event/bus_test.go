package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_ClosedVocabulary(t *testing.T) {
	assert.Len(t, Kinds, 7)
	for _, k := range Kinds {
		assert.True(t, k.Valid())
		parsed, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	assert.False(t, Kind("stream_synchronized").Valid())
	_, err := ParseKind("bogus")
	assert.Error(t, err)
}

func TestBus_PublishStampsSequence(t *testing.T) {
	b := NewBus(nil)
	sub := b.Subscribe(8)

	b.Publish(Event{Kind: KindProcessCreated, ProcessID: "p-1"})
	b.Publish(Event{Kind: KindStepAdvance, ProcessID: "p-1", Step: 2})

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, KindStepAdvance, second.Kind)
	assert.Equal(t, int64(2), b.Clock().Current())
}

func TestBus_RejectsUnknownKind(t *testing.T) {
	b := NewBus(nil)
	sub := b.Subscribe(1)

	b.Publish(Event{Kind: "nope"})
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected delivery: %+v", ev)
	default:
	}
	assert.Equal(t, int64(0), b.Clock().Current())
}

func TestBus_FilterByKind(t *testing.T) {
	b := NewBus(nil)
	sub := b.Subscribe(8, KindCycleComplete)

	b.Publish(Event{Kind: KindStepAdvance})
	b.Publish(Event{Kind: KindCycleComplete, Cycle: 1})

	ev := <-sub.C
	assert.Equal(t, KindCycleComplete, ev.Kind)
	assert.Equal(t, int64(2), ev.Seq)
	assert.Len(t, sub.C, 0)
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	b := NewBus(nil)
	sub := b.Subscribe(1)

	for i := 0; i < 5; i++ {
		b.Publish(Event{Kind: KindStepAdvance})
	}
	assert.Equal(t, int64(4), sub.Dropped())
	assert.Len(t, sub.C, 1)
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b := NewBus(nil)
	sub := b.Subscribe(1)
	sub.Cancel()
	sub.Cancel()

	_, ok := <-sub.C
	assert.False(t, ok)

	b.Publish(Event{Kind: KindStepAdvance})
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := NewBus(NewClockAt(100))
	sub := b.Subscribe(1000)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.Publish(Event{Kind: KindStepAdvance})
			}
		}()
	}
	wg.Wait()
	b.Close()

	seen := make(map[int64]bool)
	var last int64
	for ev := range sub.C {
		assert.False(t, seen[ev.Seq])
		assert.Greater(t, ev.Seq, last, "delivery order follows seq order")
		seen[ev.Seq] = true
		last = ev.Seq
	}
	assert.Len(t, seen, 500)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Emit(Event{Kind: KindProcessCreated})
	r.Emit(Event{Kind: KindStepAdvance})
	r.Emit(Event{Kind: KindStepAdvance})

	events := r.Events()
	require.Len(t, events, 3)
	assert.Equal(t, int64(3), events[2].Seq)
	assert.Equal(t, 2, r.Count(KindStepAdvance))

	r.Reset()
	assert.Empty(t, r.Events())
	r.Emit(Event{Kind: KindCycleComplete})
	assert.Equal(t, int64(1), r.Events()[0].Seq)
}

func TestFanout(t *testing.T) {
	var a, b Recorder
	f := Fanout{&a, &b, Discard}
	f.Emit(Event{Kind: KindCycleComplete})
	assert.Equal(t, 1, a.Count(KindCycleComplete))
	assert.Equal(t, 1, b.Count(KindCycleComplete))
}
