package kernel

// Metrics are the kernel's running counters.
type Metrics struct {
	TotalSteps         int64   `json:"total_steps"`
	TotalCycles        int64   `json:"total_cycles"`
	ProcessesCompleted int64   `json:"processes_completed"`
	AverageLatency     float64 `json:"average_latency"`
	CognitiveLoad      float64 `json:"cognitive_load"`
	StreamCoherence    float64 `json:"stream_coherence"`
	// SkippedCombinations counts stream merges that failed and were skipped.
	SkippedCombinations int64 `json:"skipped_combinations"`
}

// latencyWindow is a fixed-size ring of completion latencies in ticks.
type latencyWindow struct {
	buf  []int64
	next int
	full bool
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 1
	}
	return &latencyWindow{buf: make([]int64, size)}
}

func (w *latencyWindow) add(v int64) {
	w.buf[w.next] = v
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
}

func (w *latencyWindow) mean() float64 {
	n := w.next
	if w.full {
		n = len(w.buf)
	}
	if n == 0 {
		return 0
	}
	var sum int64
	for _, v := range w.buf[:n] {
		sum += v
	}
	return float64(sum) / float64(n)
}
