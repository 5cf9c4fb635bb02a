package coordinator

import (
	"fmt"

	"trafficdash/poller"
	"trafficdash/projector"
	"trafficdash/snapshot"
	"trafficdash/status"
	"trafficdash/view"
)

const (
	Title           = "Live Network Traffic"
	mainSubtitle    = "Traffic volume per client (%s window)"
	drillSubtitle   = "Protocol breakdown for %s"
	noBreakdownNote = " (no protocol data reported)"
)

// Frame is everything a renderer needs to draw the chart.
type Frame struct {
	Title      string
	Subtitle   string
	View       view.State
	Projection projector.Projection
	// Available is false when a drill-down client reports no breakdown; the
	// projection is then empty.
	Available   bool
	BackEnabled bool
}

// RenderCommand is handed to the renderer after every handled event. A nil
// Frame leaves the chart as it is and only refreshes the status.
type RenderCommand struct {
	Frame  *Frame
	Status status.Status
	Stats  StatsSnapshot
}

// Outcome is what a transition produced, for the caller to render and log.
type Outcome struct {
	Cmd    RenderCommand
	Render bool
	// Reconciled reports that the drill-down client Dropped vanished and the
	// view snapped back to Main.
	Reconciled bool
	Dropped    string
	// PollErr is the failed cycle's error.
	PollErr error
}

// Model is the dashboard state. Handlers return a new Model and never
// mutate the receiver.
type Model struct {
	Snapshot snapshot.Snapshot
	View     view.State
	Status   status.Status
	// Window labels the main subtitle, e.g. "5s".
	Window string
}

// NewModel starts in Main with no data and a Connecting status.
func NewModel(window string) Model {
	return Model{View: view.Main(), Window: window}
}

// Frame projects the current (Snapshot, View) pair.
func (m Model) Frame() Frame {
	if client, ok := m.View.Client(); ok {
		p, available := projector.Drilldown(m.Snapshot, client)
		sub := fmt.Sprintf(drillSubtitle, client)
		if !available {
			sub += noBreakdownNote
			p = projector.Projection{Labels: []string{}, Inbound: []uint64{}, Outbound: []uint64{}}
		}
		return Frame{
			Title:       Title,
			Subtitle:    sub,
			View:        m.View,
			Projection:  p,
			Available:   available,
			BackEnabled: true,
		}
	}
	return Frame{
		Title:      Title,
		Subtitle:   fmt.Sprintf(mainSubtitle, m.Window),
		View:       m.View,
		Projection: projector.Aggregate(m.Snapshot),
		Available:  true,
	}
}

// Render is the full command for the current state.
func (m Model) Render() RenderCommand {
	f := m.Frame()
	return RenderCommand{Frame: &f, Status: m.Status}
}

// OnPoll applies one poll result. A failed cycle only changes the status;
// a successful one replaces the snapshot and reconciles the view.
func (m Model) OnPoll(res poller.Result) (Model, Outcome) {
	if res.Err != nil {
		m.Status = m.Status.RecordFailure(res.Err)
		return m, Outcome{
			Cmd:     RenderCommand{Status: m.Status},
			Render:  true,
			PollErr: res.Err,
		}
	}
	m.Snapshot = res.Snapshot
	var out Outcome
	if next, changed := m.View.Reconcile(m.Snapshot); changed {
		out.Dropped, _ = m.View.Client()
		out.Reconciled = true
		m.View = next
	}
	m.Status = m.Status.RecordSuccess(res.At)
	out.Cmd = m.Render()
	out.Render = true
	return m, out
}

// OnSelect handles a click on bar group index. fingerprint is the
// LabelsFingerprint of the frame the click was made on; zero skips the check.
// Value-only refreshes keep the click valid. Clicks outside Main, on frames
// whose labels have since changed, or off the chart are ignored.
func (m Model) OnSelect(index int, fingerprint uint64) (Model, Outcome) {
	if !m.View.IsMain() {
		return m, Outcome{}
	}
	current := projector.Aggregate(m.Snapshot)
	if fingerprint != 0 && fingerprint != current.LabelsFingerprint() {
		return m, Outcome{}
	}
	next, changed := m.View.Select(current.Labels, index)
	if !changed {
		return m, Outcome{}
	}
	m.View = next
	return m, Outcome{Cmd: m.Render(), Render: true}
}

// OnBack returns to the aggregate view from a drill-down.
func (m Model) OnBack() (Model, Outcome) {
	next, changed := m.View.Back()
	if !changed {
		return m, Outcome{}
	}
	m.View = next
	return m, Outcome{Cmd: m.Render(), Render: true}
}
