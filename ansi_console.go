package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"trafficdash/config"
	"trafficdash/coordinator"
	"trafficdash/status"
	"trafficdash/strutil"
	"trafficdash/ui"
)

const (
	ansiSystemLines = 8
	ansiBarWidth    = 40
	ansiLabelWidth  = 16
)

// ansiConsole is a non-interactive renderer that repaints the chart as text
// bars with ANSI escape codes. It is selected via ui.mode=ansi.
type ansiConsole struct {
	mu        sync.Mutex
	frame     coordinator.Frame
	hasFrame  bool
	status    status.Status
	stats     coordinator.StatsSnapshot
	dirty     bool
	system    ringPane
	refresh   time.Duration
	quit      chan struct{}
	done      chan struct{}
	writer    *ansiWriter
	color     bool
	out       io.Writer
	renderBuf bytes.Buffer
	snapSys   []string
	stopOnce  sync.Once
}

type ringPane struct {
	lines []string
	idx   int
	count int
}

// Purpose: Construct the ANSI renderer and start its repaint loop.
// Key aspects: Repaints at most TargetFPS times per second and only when dirty.
// Upstream: main UI selection based on config.
// Downstream: refreshLoop goroutine.
func newANSIConsole(uiCfg config.UIConfig, out io.Writer) *ansiConsole {
	fps := uiCfg.TargetFPS
	if fps <= 0 {
		fps = 30
	}
	c := &ansiConsole{
		system:  ringPane{lines: make([]string, ansiSystemLines)},
		refresh: time.Second / time.Duration(fps),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		color:   uiCfg.Color,
		out:     out,
		snapSys: make([]string, ansiSystemLines),
		dirty:   true,
	}
	c.writer = &ansiWriter{append: c.AppendSystem}
	go c.refreshLoop()
	return c
}

// Purpose: Satisfy the ui.Surface readiness contract.
// Key aspects: No-op because the ANSI renderer has no async initialization.
// Upstream: main UI setup.
// Downstream: None.
func (c *ansiConsole) WaitReady() {}

// Purpose: Stop the repaint loop.
// Key aspects: Ensures quit is closed once.
// Upstream: main shutdown path.
// Downstream: None (channel close only).
func (c *ansiConsole) Stop() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.quit)
	})
}

// Done never closes; the ANSI console has no quit key and relies on signals.
func (c *ansiConsole) Done() <-chan struct{} { return c.done }

// Purpose: Accept a render command from the coordinator.
// Key aspects: A nil frame keeps the previous chart; painting happens on the next tick.
// Upstream: coordinator.Run.
// Downstream: None (mutates in-memory state).
func (c *ansiConsole) Render(cmd coordinator.RenderCommand) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if cmd.Frame != nil {
		c.frame = *cmd.Frame
		c.hasFrame = true
	}
	c.status = cmd.Status
	c.stats = cmd.Stats
	c.dirty = true
	c.mu.Unlock()
}

// Purpose: Append a system log line to the system pane.
// Key aspects: Ring buffer; oldest line drops first.
// Upstream: ansiWriter.Write.
// Downstream: None.
func (c *ansiConsole) AppendSystem(line string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.system.lines[c.system.idx] = line
	c.system.idx = (c.system.idx + 1) % len(c.system.lines)
	if c.system.count < len(c.system.lines) {
		c.system.count++
	}
	c.dirty = true
	c.mu.Unlock()
}

// Purpose: Provide an io.Writer for system log output.
// Key aspects: Returns the line-buffering writer feeding AppendSystem.
// Upstream: logFanout.SetConsoleSink in main.
// Downstream: None (returns existing writer).
func (c *ansiConsole) SystemWriter() io.Writer {
	if c == nil {
		return nil
	}
	return c.writer
}

// Purpose: Periodic repaint loop.
// Key aspects: Recovers panics, skips clean frames, exits on quit.
// Upstream: goroutine started in newANSIConsole.
// Downstream: c.render.
func (c *ansiConsole) refreshLoop() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "ANSI console panic: %v\n", r)
		}
	}()
	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.render()
		case <-c.quit:
			return
		}
	}
}

// Purpose: Paint the current state to the output.
// Key aspects: Copies state under lock, clears the screen, writes chart then system pane.
// Upstream: refreshLoop.
// Downstream: writeChart, writePane.
func (c *ansiConsole) render() {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return
	}
	c.dirty = false
	frame, hasFrame := c.frame, c.hasFrame
	st, stats := c.status, c.stats
	system := snapshotPane(&c.system, c.snapSys)
	c.mu.Unlock()

	c.renderBuf.Reset()
	c.renderBuf.WriteString("\x1b[2J\x1b[H")
	writeChart(&c.renderBuf, frame, hasFrame, st, c.color)
	c.renderBuf.WriteString(applyANSIMarkup(fmt.Sprintf("[cyan]polls ok %d fail %d, poll p50 %s[-]",
		stats.PollsOK, stats.PollsFail, stats.Poll.P50.Round(time.Millisecond)), c.color))
	c.renderBuf.WriteByte('\n')
	writePane(&c.renderBuf, "---- System ----", system)
	_, _ = c.renderBuf.WriteTo(c.out)
}

type stringByteWriter interface {
	WriteString(string) (int, error)
	WriteByte(byte) error
}

// Purpose: Write title, status and one text bar pair per label.
// Key aspects: Bars scale to the frame maximum; empty frames print a note.
// Upstream: ansiConsole.render.
// Downstream: ui.FormatBytes, applyANSIMarkup.
func writeChart(w stringByteWriter, frame coordinator.Frame, hasFrame bool, st status.Status, color bool) {
	w.WriteString(coordinator.Title)
	w.WriteByte('\n')
	if hasFrame {
		w.WriteString(frame.Subtitle)
		w.WriteByte('\n')
	}
	w.WriteString(applyANSIMarkup(statusMarkup(st), color))
	w.WriteByte('\n')
	w.WriteByte('\n')

	p := frame.Projection
	if p.Len() == 0 {
		note := "No traffic data"
		if hasFrame && !frame.View.IsMain() && !frame.Available {
			note = "No protocol breakdown available for this client"
		}
		w.WriteString(note)
		w.WriteByte('\n')
		w.WriteByte('\n')
		return
	}
	max := p.Max()
	for i, label := range p.Labels {
		w.WriteString(fmt.Sprintf("%-*s ", ansiLabelWidth, strutil.TruncateRunes(label, ansiLabelWidth)))
		w.WriteString(applyANSIMarkup("[blue]"+textBar(p.Inbound[i], max)+"[-] in  "+ui.FormatBytes(p.Inbound[i]), color))
		w.WriteByte('\n')
		w.WriteString(strings.Repeat(" ", ansiLabelWidth+1))
		w.WriteString(applyANSIMarkup("[red]"+textBar(p.Outbound[i], max)+"[-] out "+ui.FormatBytes(p.Outbound[i]), color))
		w.WriteByte('\n')
	}
	w.WriteByte('\n')
}

func statusMarkup(st status.Status) string {
	switch st.Kind {
	case status.Connected:
		return "[green]" + st.Detail() + "[-]"
	case status.Error:
		return "[red]" + st.Detail() + "[-]"
	default:
		return "[yellow]" + st.Detail() + "[-]"
	}
}

func textBar(value, max uint64) string {
	if value == 0 || max == 0 {
		return ""
	}
	n := int(float64(value) / float64(max) * ansiBarWidth)
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// Purpose: Write a titled pane to the output buffer.
// Key aspects: Emits header and each line with trailing newline.
// Upstream: render.
// Downstream: writer WriteString/WriteByte.
func writePane(w stringByteWriter, title string, lines []string) {
	w.WriteString(title)
	w.WriteByte('\n')
	for _, line := range lines {
		if line != "" {
			w.WriteString(line)
		}
		w.WriteByte('\n')
	}
}

// Purpose: Snapshot a ring pane into a caller-provided buffer.
// Key aspects: Respects current count and ring order.
// Upstream: render.
// Downstream: None.
func snapshotPane(p *ringPane, buf []string) []string {
	if p == nil || len(p.lines) == 0 || p.count == 0 || len(buf) == 0 {
		return buf[:0]
	}
	start := p.idx - p.count
	if start < 0 {
		start += len(p.lines)
	}
	limit := p.count
	if limit > len(buf) {
		limit = len(buf)
	}
	for i := 0; i < limit; i++ {
		buf[i] = p.lines[(start+i)%len(p.lines)]
	}
	return buf[:limit]
}

type ansiWriter struct {
	append func(string)
	buf    []byte
	mu     sync.Mutex
}

// Purpose: Implement io.Writer for system logs routed to the ANSI console.
// Key aspects: Buffers until newline and bounds buffer growth.
// Upstream: log output when the ANSI UI is active.
// Downstream: w.append.
func (w *ansiWriter) Write(p []byte) (int, error) {
	if w == nil || w.append == nil {
		return len(p), nil
	}
	const maxWriterBufferSize = 16 * 1024
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var lines []string
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx == -1 {
			break
		}
		lines = append(lines, strings.TrimRight(string(w.buf[:idx]), "\r"))
		w.buf = w.buf[idx+1:]
	}
	if len(w.buf) > maxWriterBufferSize {
		// Force out the partial line rather than grow without bound.
		if trimmed := strings.TrimRight(string(w.buf), "\r"); trimmed != "" {
			lines = append(lines, trimmed)
		}
		w.buf = w.buf[:0]
	}
	w.mu.Unlock()
	for _, line := range lines {
		w.append(line)
	}
	return len(p), nil
}

// Purpose: Apply or strip ANSI markup tokens.
// Key aspects: Appends a reset code when markup is present.
// Upstream: render and writeChart.
// Downstream: strings.Replacer instances.
func applyANSIMarkup(line string, enableColor bool) string {
	if line == "" {
		return line
	}
	if enableColor {
		hasMarkup := strings.Contains(line, "[")
		line = ansiColorReplacer.Replace(line)
		if hasMarkup {
			line += resetANSI
		}
		return line
	}
	return ansiStripReplacer.Replace(line)
}

const resetANSI = "\x1b[0m"

var ansiColorReplacer = strings.NewReplacer(
	"[red]", "\x1b[31m",
	"[green]", "\x1b[32m",
	"[yellow]", "\x1b[33m",
	"[blue]", "\x1b[34m",
	"[cyan]", "\x1b[36m",
	"[-]", resetANSI,
)

var ansiStripReplacer = strings.NewReplacer(
	"[red]", "",
	"[green]", "",
	"[yellow]", "",
	"[blue]", "",
	"[cyan]", "",
	"[-]", "",
)
