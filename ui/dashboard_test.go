package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"trafficdash/coordinator"
	"trafficdash/status"

	"github.com/rivo/tview"
)

func newTestDashboard() *Dashboard {
	d := &Dashboard{
		scheduler: newFrameScheduler(nil, 60, 50*time.Millisecond, nil),
		logBuf:    NewLineBuffer(10, 0),
		quit:      make(chan struct{}),
	}
	d.buildWidgets()
	return d
}

func TestPaneWriterBounds(t *testing.T) {
	writer := &paneWriter{dash: newTestDashboard()}
	input := bytes.Repeat([]byte("a"), paneWriterMaxBytes*2)
	n, err := writer.Write(input)
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if n != len(input) {
		t.Fatalf("expected write %d bytes, got %d", len(input), n)
	}
	if len(writer.buf) != paneWriterMaxBytes {
		t.Fatalf("expected buffer size %d, got %d", paneWriterMaxBytes, len(writer.buf))
	}
	if writer.droppedBytes == 0 {
		t.Fatalf("expected dropped bytes to be tracked")
	}
}

func TestPaneWriterSplitsLines(t *testing.T) {
	d := newTestDashboard()
	w := d.SystemWriter()
	w.Write([]byte("poller: transport error: refused\nview: cli"))
	w.Write([]byte("ent 10.0.0.1 no longer reported\r\n"))
	d.scheduler.flush()

	lines := d.logBuf.SnapshotInto(nil)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", lines)
	}
	if lines[1].Message != "view: client 10.0.0.1 no longer reported" {
		t.Fatalf("unexpected second line %q", lines[1].Message)
	}
	if text := d.logView.GetText(true); !strings.Contains(text, "poller: transport error: refused") {
		t.Fatalf("log pane missing line: %q", text)
	}
}

func TestRenderSkipsUnchangedFrame(t *testing.T) {
	d := newTestDashboard()
	f := mainFrame()
	d.Render(coordinator.RenderCommand{Frame: &f})
	d.scheduler.flush()
	if d.chart.frame.Projection.Len() != 3 {
		t.Fatalf("chart not updated: %+v", d.chart.frame)
	}

	same := mainFrame()
	d.Render(coordinator.RenderCommand{Frame: &same, Status: status.Status{Kind: status.Connected, LastSuccess: time.Now()}})
	d.scheduler.mu.Lock()
	_, chartPending := d.scheduler.pending["chart"]
	_, statusPending := d.scheduler.pending["status"]
	d.scheduler.mu.Unlock()
	if chartPending {
		t.Fatalf("identical frame should not schedule a chart redraw")
	}
	if !statusPending {
		t.Fatalf("status must always be refreshed")
	}
	if d.skipped != 1 {
		t.Fatalf("skipped = %d", d.skipped)
	}

	drill := drillFrame(true)
	d.Render(coordinator.RenderCommand{Frame: &drill})
	d.scheduler.flush()
	if !d.chart.frame.BackEnabled {
		t.Fatalf("drilldown frame not applied")
	}
	if hints := d.hints.GetText(true); !strings.Contains(hints, "back") {
		t.Fatalf("drilldown hints should offer back: %q", hints)
	}
}

func TestRenderNilFrameLeavesChart(t *testing.T) {
	d := newTestDashboard()
	f := mainFrame()
	d.Render(coordinator.RenderCommand{Frame: &f})
	d.scheduler.flush()
	d.Render(coordinator.RenderCommand{Status: status.Status{}.RecordFailure(errors.New("boom"))})
	d.scheduler.flush()
	if d.chart.frame.Projection.Len() != 3 {
		t.Fatalf("nil frame must leave the chart as it is")
	}
	if text := d.statusView.GetText(true); !strings.Contains(text, "Connection error") {
		t.Fatalf("status = %q", text)
	}
	if got, ok := d.CurrentFrame(); !ok || got.Projection.Len() != 3 {
		t.Fatalf("current frame = %+v ok=%v", got, ok)
	}
}

func TestStatusLineColours(t *testing.T) {
	cases := []struct {
		st   status.Status
		want string
	}{
		{status.Status{}, "[yellow]"},
		{status.Status{}.RecordSuccess(time.Now()), "[green]"},
		{status.Status{}.RecordFailure(errors.New("x")), "[red]"},
	}
	for _, tc := range cases {
		if got := statusLine(tc.st); !strings.HasPrefix(got, tc.want) {
			t.Fatalf("statusLine(%v) = %q, want prefix %q", tc.st.Kind, got, tc.want)
		}
	}
}

func TestHintsLineBackOnlyInDrilldown(t *testing.T) {
	if strings.Contains(hintsLine(true), "back") {
		t.Fatalf("main hints must not offer back")
	}
	if !strings.Contains(hintsLine(false), "back") {
		t.Fatalf("drilldown hints must offer back")
	}
}

func TestStatsLine(t *testing.T) {
	line := statsLine(coordinator.StatsSnapshot{
		Poll:    coordinator.LatencySnapshot{P50: 12 * time.Millisecond, P99: 1500 * time.Millisecond, N: 3},
		PollsOK: 1200,
	})
	for _, want := range []string{"p50 12ms", "p99 1.5s", "ok 1,200", "fail 0"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestAccentTextEscapes(t *testing.T) {
	got := accentText("[x]")
	if got != accentTag+tview.Escape("[x]")+accentReset {
		t.Fatalf("accentText = %q", got)
	}
}

func TestQuitIdempotent(t *testing.T) {
	d := newTestDashboard()
	d.requestQuit()
	d.requestQuit()
	select {
	case <-d.Done():
	default:
		t.Fatalf("Done should be closed after quit")
	}
}
