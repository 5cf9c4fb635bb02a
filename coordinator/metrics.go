package coordinator

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// LatencyTracker keeps a bounded ring of durations for percentile estimates.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	count   int
	idx     int
}

func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 256
	}
	return &LatencyTracker{samples: make([]time.Duration, size)}
}

func (t *LatencyTracker) Observe(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.samples[t.idx] = d
	t.idx = (t.idx + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
	t.mu.Unlock()
}

type LatencySnapshot struct {
	P50 time.Duration
	P99 time.Duration
	N   int
}

func (t *LatencyTracker) Snapshot() LatencySnapshot {
	if t == nil {
		return LatencySnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return LatencySnapshot{}
	}
	values := make([]time.Duration, t.count)
	copy(values, t.samples[:t.count])
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return LatencySnapshot{
		P50: values[t.count/2],
		P99: values[int(float64(t.count-1)*0.99)],
		N:   t.count,
	}
}

// StatsSnapshot is the footer view of Metrics.
type StatsSnapshot struct {
	Poll       LatencySnapshot
	Render     LatencySnapshot
	PollsOK    uint64
	PollsFail  uint64
	Reconciles uint64
}

// Metrics counts poll outcomes and tracks poll/render latency. Safe for
// concurrent use; the renderer reports draw times from its own goroutine.
type Metrics struct {
	pollLatency   *LatencyTracker
	renderLatency *LatencyTracker
	pollsOK       atomic.Uint64
	pollsFail     atomic.Uint64
	reconciles    atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		pollLatency:   NewLatencyTracker(256),
		renderLatency: NewLatencyTracker(512),
	}
}

func (m *Metrics) ObservePoll(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.pollLatency.Observe(d)
	if failed {
		m.pollsFail.Add(1)
	} else {
		m.pollsOK.Add(1)
	}
}

func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.renderLatency.Observe(d)
}

func (m *Metrics) Reconciled() {
	if m == nil {
		return
	}
	m.reconciles.Add(1)
}

func (m *Metrics) Snapshot() StatsSnapshot {
	if m == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Poll:       m.pollLatency.Snapshot(),
		Render:     m.renderLatency.Snapshot(),
		PollsOK:    m.pollsOK.Load(),
		PollsFail:  m.pollsFail.Load(),
		Reconciles: m.reconciles.Load(),
	}
}
