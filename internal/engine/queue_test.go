package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultQueue_FIFO(t *testing.T) {
	q := newResultQueue()
	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(Result{Kind: ResultMemories, ProcessID: id}))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.ProcessID)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestResultQueue_Drain(t *testing.T) {
	q := newResultQueue()
	assert.Empty(t, q.Drain())

	q.Enqueue(Result{ProcessID: "a"})
	q.Enqueue(Result{ProcessID: "b"})
	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProcessID)
	assert.Equal(t, "b", got[1].ProcessID)
	assert.Empty(t, q.Drain())
}

func TestResultQueue_Close(t *testing.T) {
	q := newResultQueue()
	require.True(t, q.Enqueue(Result{ProcessID: "early"}))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Result{ProcessID: "late"}))
	got := q.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "early", got[0].ProcessID)
}

func TestResultQueue_ConcurrentEnqueue(t *testing.T) {
	q := newResultQueue()
	const producers = 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(Result{Kind: ResultCompletion})
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(), producers)
}
