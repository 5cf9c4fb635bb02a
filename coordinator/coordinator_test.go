package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"trafficdash/poller"
	"trafficdash/snapshot"
	"trafficdash/status"
)

type recordingRenderer struct {
	mu   sync.Mutex
	cmds []RenderCommand
	ch   chan RenderCommand
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{ch: make(chan RenderCommand, 32)}
}

func (r *recordingRenderer) Render(cmd RenderCommand) {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	r.mu.Unlock()
	r.ch <- cmd
}

func (r *recordingRenderer) next(t *testing.T) RenderCommand {
	t.Helper()
	select {
	case cmd := <-r.ch:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for render")
	}
	return RenderCommand{}
}

func TestNewRequiresRenderer(t *testing.T) {
	if _, err := New(nil, nil, "5s"); err == nil {
		t.Fatalf("expected error for nil renderer")
	}
}

func TestRunSerialisesPollsAndEvents(t *testing.T) {
	r := newRecordingRenderer()
	c, err := New(r, nil, "5s")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results := make(chan poller.Result)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Model, 1)
	go func() { done <- c.Run(ctx, results) }()

	if cmd := r.next(t); cmd.Status.Kind != status.Connecting {
		t.Fatalf("initial status = %v", cmd.Status.Kind)
	}

	results <- okResult(twoClients(), time.Now())
	cmd := r.next(t)
	if cmd.Frame == nil || cmd.Frame.Projection.Len() != 2 {
		t.Fatalf("aggregate frame = %+v", cmd.Frame)
	}
	if cmd.Stats.PollsOK != 1 {
		t.Fatalf("polls ok = %d", cmd.Stats.PollsOK)
	}

	c.Select(0, cmd.Frame.Projection.LabelsFingerprint())
	cmd = r.next(t)
	if !cmd.Frame.BackEnabled {
		t.Fatalf("expected drilldown frame")
	}

	results <- poller.Result{Err: &poller.TransportError{URL: "u", Err: context.DeadlineExceeded}, At: time.Now()}
	cmd = r.next(t)
	if cmd.Frame != nil || cmd.Status.Kind != status.Error || cmd.Stats.PollsFail != 1 {
		t.Fatalf("failure command = %+v", cmd)
	}

	b := &snapshot.Builder{}
	results <- okResult(b.Snapshot(), time.Now())
	cmd = r.next(t)
	if cmd.Frame == nil || !cmd.Frame.View.IsMain() || cmd.Frame.Projection.Len() != 0 {
		t.Fatalf("reconciled frame = %+v", cmd.Frame)
	}
	if cmd.Stats.Reconciles != 1 {
		t.Fatalf("reconciles = %d", cmd.Stats.Reconciles)
	}

	cancel()
	select {
	case m := <-done:
		if !m.View.IsMain() || m.Status.Kind != status.Connected {
			t.Fatalf("final model = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunStopsWhenResultsClosed(t *testing.T) {
	r := newRecordingRenderer()
	c, _ := New(r, nil, "5s")
	results := make(chan poller.Result)
	close(results)
	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), results)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	c, _ := New(newRecordingRenderer(), nil, "5s")
	for i := 0; i < eventQueueSize+5; i++ {
		c.Back()
	}
	if len(c.events) != eventQueueSize {
		t.Fatalf("queue len = %d", len(c.events))
	}
}

func TestLatencyTrackerPercentiles(t *testing.T) {
	tr := NewLatencyTracker(4)
	for _, ms := range []int{10, 20, 30, 40, 50} {
		tr.Observe(time.Duration(ms) * time.Millisecond)
	}
	snap := tr.Snapshot()
	if snap.N != 4 {
		t.Fatalf("N = %d", snap.N)
	}
	if snap.P50 != 40*time.Millisecond || snap.P99 != 40*time.Millisecond {
		t.Fatalf("p50=%v p99=%v", snap.P50, snap.P99)
	}
	var nilTracker *LatencyTracker
	nilTracker.Observe(time.Second)
	if nilTracker.Snapshot().N != 0 {
		t.Fatalf("nil tracker should be empty")
	}
}
