package main

import (
	"log"

	"trafficdash/coordinator"
	"trafficdash/status"
	"trafficdash/ui"
)

// headlessRenderer reports chart and status changes through the log when
// no terminal UI is available.
type headlessRenderer struct {
	logf       func(format string, args ...interface{})
	lastKind   status.Kind
	seenStatus bool
	lastView   string
	lastPrint  uint64
	seenFrame  bool
}

// Purpose: Construct the log-only renderer.
// Key aspects: Defaults to log.Printf; tests inject a recorder.
// Upstream: main when ui.mode=headless or stdout is not a TTY.
// Downstream: None.
func newHeadlessRenderer(logf func(format string, args ...interface{})) *headlessRenderer {
	if logf == nil {
		logf = log.Printf
	}
	return &headlessRenderer{logf: logf}
}

// Purpose: Log a summary line when the chart or the status kind changes.
// Key aspects: Called only from the coordinator goroutine, so no locking.
// Upstream: coordinator.Run.
// Downstream: logf.
func (h *headlessRenderer) Render(cmd coordinator.RenderCommand) {
	if f := cmd.Frame; f != nil {
		view := f.View.String()
		fp := f.Projection.Fingerprint()
		if !h.seenFrame || view != h.lastView || fp != h.lastPrint {
			h.seenFrame, h.lastView, h.lastPrint = true, view, fp
			var in, out uint64
			for i := range f.Projection.Labels {
				in += f.Projection.Inbound[i]
				out += f.Projection.Outbound[i]
			}
			h.logf("chart: %s: %d bars, inbound %s, outbound %s", f.Subtitle, f.Projection.Len(), ui.FormatBytes(in), ui.FormatBytes(out))
		}
	}
	if !h.seenStatus || cmd.Status.Kind != h.lastKind {
		h.seenStatus, h.lastKind = true, cmd.Status.Kind
		h.logf("status: %s", cmd.Status.Text())
	}
}
