package ui

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"trafficdash/config"
	"trafficdash/coordinator"
	"trafficdash/status"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const paneWriterMaxBytes = 64 * 1024

const (
	accentTag   = "[#ff69b4]"
	accentReset = "[-]"
)

var (
	uiBorderColor = tcell.ColorGray
	uiTitleColor  = tcell.ColorHotPink
)

// frameKey identifies what the chart currently shows; equal keys skip the
// redraw.
type frameKey struct {
	fingerprint uint64
	view        string
	subtitle    string
	available   bool
}

func keyOf(f coordinator.Frame) frameKey {
	return frameKey{
		fingerprint: f.Projection.Fingerprint(),
		view:        f.View.String(),
		subtitle:    f.Subtitle,
		available:   f.Available,
	}
}

// Dashboard is the interactive tview renderer.
type Dashboard struct {
	app       *tview.Application
	scheduler *frameScheduler
	metrics   *coordinator.Metrics

	header     *tview.TextView
	statusView *tview.TextView
	chart      *barChart
	logView    *tview.TextView
	hints      *tview.TextView
	statsView  *tview.TextView

	logBuf   *LineBuffer
	logLines []LogLine

	ready    chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	stopOnce sync.Once

	exportDir string

	frameMu  sync.Mutex
	frame    coordinator.Frame
	hasFrame bool
	lastKey  frameKey
	skipped  uint64
}

// NewDashboard builds the UI and starts the tview event loop.
func NewDashboard(cfg config.UIConfig, metrics *coordinator.Metrics) *Dashboard {
	app := tview.NewApplication().EnableMouse(cfg.EnableMouse)
	ready := make(chan struct{})
	var once sync.Once
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(ready) })
		return false
	})

	d := &Dashboard{
		app:       app,
		metrics:   metrics,
		ready:     ready,
		quit:      make(chan struct{}),
		exportDir: cfg.ExportDir,
		logBuf:    NewLineBuffer(cfg.LogLines, 256*1024),
	}
	d.buildWidgets()

	d.scheduler = newFrameScheduler(app, cfg.TargetFPS, 100*time.Millisecond, metrics.ObserveRender)
	d.scheduler.Start()

	d.installKeybindings()
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.header, 1, 0, false).
		AddItem(d.statusView, 1, 0, false).
		AddItem(d.chart, 0, 1, true).
		AddItem(d.logView, 8, 0, false).
		AddItem(d.hints, 1, 0, false).
		AddItem(d.statsView, 1, 0, false)
	app.SetRoot(root, true).SetFocus(d.chart)

	go func() {
		if err := app.Run(); err != nil {
			log.Printf("UI: tview error: %v", err)
		}
		d.requestQuit()
	}()
	return d
}

func (d *Dashboard) buildWidgets() {
	d.header = tview.NewTextView().SetDynamicColors(true).SetWrap(false).
		SetText(accentText(coordinator.Title))
	d.statusView = tview.NewTextView().SetDynamicColors(true).SetWrap(false).
		SetText(statusLine(status.Status{}))
	d.chart = newBarChart()
	d.logView = newBoxedTextView("Log")
	d.hints = tview.NewTextView().SetDynamicColors(true).SetWrap(false).
		SetText(hintsLine(true))
	d.statsView = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
}

func (d *Dashboard) installKeybindings() {
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			d.requestQuit()
			return nil
		}
		switch event.Rune() {
		case 'q', 'Q':
			d.requestQuit()
			return nil
		case 's', 'S':
			d.exportCurrent()
			return nil
		}
		return event
	})
}

// Bind routes chart clicks and back requests, typically to a
// coordinator's Select and Back.
func (d *Dashboard) Bind(onSelect func(index int, fingerprint uint64), onBack func()) {
	d.scheduler.Schedule("bind", func() {
		d.chart.onSelect = onSelect
		d.chart.onBack = onBack
	})
}

// Render implements coordinator.Renderer.
func (d *Dashboard) Render(cmd coordinator.RenderCommand) {
	if d == nil {
		return
	}
	if cmd.Frame != nil {
		f := *cmd.Frame
		key := keyOf(f)
		d.frameMu.Lock()
		changed := !d.hasFrame || key != d.lastKey
		d.frame, d.hasFrame, d.lastKey = f, true, key
		if !changed {
			d.skipped++
		}
		d.frameMu.Unlock()
		if changed {
			d.scheduler.Schedule("chart", func() {
				d.chart.SetFrame(f)
				d.hints.SetText(hintsLine(f.View.IsMain()))
			})
		}
	}
	statusText := statusLine(cmd.Status)
	statsText := statsLine(cmd.Stats)
	d.scheduler.Schedule("status", func() {
		d.statusView.SetText(statusText)
		d.statsView.SetText(statsText)
	})
}

// CurrentFrame returns the last frame handed to Render.
func (d *Dashboard) CurrentFrame() (coordinator.Frame, bool) {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()
	return d.frame, d.hasFrame
}

func (d *Dashboard) exportCurrent() {
	frame, ok := d.CurrentFrame()
	if !ok {
		log.Printf("UI: nothing to export yet")
		return
	}
	dir := d.exportDir
	go func() {
		path, err := SavePNG(dir, frame, time.Now())
		if err != nil {
			log.Printf("UI: export failed: %v", err)
			return
		}
		log.Printf("UI: chart exported to %s", path)
	}()
}

func (d *Dashboard) requestQuit() {
	d.quitOnce.Do(func() { close(d.quit) })
}

// Done is closed when the user quits or the UI loop exits.
func (d *Dashboard) Done() <-chan struct{} { return d.quit }

func (d *Dashboard) WaitReady() {
	if d == nil || d.ready == nil {
		return
	}
	<-d.ready
}

func (d *Dashboard) Stop() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.requestQuit()
		if d.scheduler != nil {
			d.scheduler.Stop()
		}
		if d.app != nil {
			d.app.Stop()
		}
	})
}

// AppendSystem adds one line to the log pane.
func (d *Dashboard) AppendSystem(line string) {
	if d == nil || d.logBuf == nil {
		return
	}
	d.logBuf.Append(LogLine{Timestamp: time.Now(), Message: line})
	d.scheduler.Schedule("log", d.renderLog)
}

func (d *Dashboard) renderLog() {
	d.logLines = d.logBuf.SnapshotInto(d.logLines)
	var b strings.Builder
	for i, l := range d.logLines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Timestamp.Format("15:04:05"))
		b.WriteByte(' ')
		b.WriteString(tview.Escape(l.Message))
	}
	d.logView.SetText(b.String())
	d.logView.ScrollToEnd()
}

// SystemWriter adapts log output to the log pane.
func (d *Dashboard) SystemWriter() io.Writer {
	return &paneWriter{dash: d}
}

type paneWriter struct {
	dash *Dashboard
	// buf holds any partial line; it is bounded to avoid unbounded growth when no newline arrives.
	buf          []byte
	mu           sync.Mutex
	droppedBytes uint64
}

func (w *paneWriter) Write(p []byte) (int, error) {
	if w == nil || w.dash == nil {
		return len(p), nil
	}
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	if excess := len(w.buf) - paneWriterMaxBytes; excess > 0 {
		w.buf = append(w.buf[:0], w.buf[excess:]...)
		w.droppedBytes += uint64(excess)
	}
	var lines []string
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx == -1 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(w.buf[:idx], "\r")))
		w.buf = w.buf[idx+1:]
	}
	w.mu.Unlock()
	for _, line := range lines {
		w.dash.AppendSystem(line)
	}
	return len(p), nil
}

func newBoxedTextView(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	tv.SetBorder(true)
	if title != "" {
		tv.SetTitle(accentText(title)).SetTitleAlign(tview.AlignLeft)
	}
	tv.SetBorderColor(uiBorderColor)
	tv.SetTitleColor(uiTitleColor)
	return tv
}

func accentText(s string) string {
	return accentTag + tview.Escape(s) + accentReset
}

// statusLine colours the indicator: yellow connecting, green connected,
// red on error.
func statusLine(st status.Status) string {
	color := "yellow"
	switch st.Kind {
	case status.Connected:
		color = "green"
	case status.Error:
		color = "red"
	}
	return fmt.Sprintf("[%s]●[-] %s", color, tview.Escape(st.Detail()))
}

func hintsLine(main bool) string {
	if main {
		return accentText("↑/↓") + " select  " + accentText("Enter") + " drill down  " +
			accentText("s") + " export PNG  " + accentText("q") + " quit"
	}
	return accentText("Esc/b") + " back  " + accentText("s") + " export PNG  " + accentText("q") + " quit"
}

func statsLine(s coordinator.StatsSnapshot) string {
	return fmt.Sprintf("[gray]poll p50 %s p99 %s | render p50 %s | ok %s fail %s reconciled %s[-]",
		formatLatency(s.Poll.P50), formatLatency(s.Poll.P99), formatLatency(s.Render.P50),
		formatCount(s.PollsOK), formatCount(s.PollsFail), formatCount(s.Reconciles))
}

func formatLatency(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
