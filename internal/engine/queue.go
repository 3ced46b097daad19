package engine

import (
	"sync"

	"github.com/roach88/triadic/internal/collab"
)

// ResultKind distinguishes collaborator results.
type ResultKind int

const (
	// ResultMemories carries memory ids found for a newly active process.
	ResultMemories ResultKind = iota + 1
	// ResultCompletion carries a completer answer.
	ResultCompletion
	// ResultFailure carries a collaborator error.
	ResultFailure
)

// Result is one collaborator outcome waiting to be folded into the kernel.
type Result struct {
	Kind       ResultKind
	ProcessID  string
	Op         string
	Memories   []string
	Completion collab.Completion
	Err        error
}

// resultQueue is a thread-safe FIFO of collaborator results. Collaborator
// goroutines enqueue; the engine drains it at the start of each tick.
type resultQueue struct {
	mu      sync.Mutex
	results []Result
	closed  bool
}

func newResultQueue() *resultQueue {
	return &resultQueue{results: make([]Result, 0, 16)}
}

// Enqueue adds r to the back of the queue. Returns false once closed.
func (q *resultQueue) Enqueue(r Result) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.results = append(q.results, r)
	return true
}

// TryDequeue removes the front result without blocking.
func (q *resultQueue) TryDequeue() (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.results) == 0 {
		return Result{}, false
	}
	r := q.results[0]
	// Clear the slot so the backing array does not pin result slices.
	q.results[0] = Result{}
	if len(q.results) == 1 {
		q.results = q.results[:0]
	} else {
		q.results = q.results[1:]
	}
	return r, true
}

// Drain removes and returns every queued result in FIFO order.
func (q *resultQueue) Drain() []Result {
	var out []Result
	for {
		r, ok := q.TryDequeue()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// Close rejects further results. Idempotent.
func (q *resultQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
