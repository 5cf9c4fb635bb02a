// Package view models which slice of the snapshot the dashboard shows.
package view

import "trafficdash/snapshot"

// State is either Main or Drilldown(client). The zero value is Main.
type State struct {
	client string
	drill  bool
}

// Main is the aggregate, all-clients view.
func Main() State { return State{} }

// Drilldown is the per-protocol view of one client.
func Drilldown(client string) State { return State{client: client, drill: true} }

// IsMain reports whether s is the aggregate view.
func (s State) IsMain() bool { return !s.drill }

// Client returns the drilled-down client id; ok is false in Main.
func (s State) Client() (string, bool) { return s.client, s.drill }

func (s State) String() string {
	if !s.drill {
		return "main"
	}
	return "drilldown(" + s.client + ")"
}

// Select moves Main to Drilldown(labels[index]). It is a no-op outside Main
// or when index does not hit a rendered label. changed reports whether a
// transition happened.
func (s State) Select(labels []string, index int) (next State, changed bool) {
	if s.drill || index < 0 || index >= len(labels) {
		return s, false
	}
	return Drilldown(labels[index]), true
}

// Back returns to Main from any drill-down. It is a no-op in Main.
func (s State) Back() (next State, changed bool) {
	if !s.drill {
		return s, false
	}
	return Main(), true
}

// Reconcile returns to Main when the drilled-down client is missing from
// snap. It never fires otherwise.
func (s State) Reconcile(snap snapshot.Snapshot) (next State, changed bool) {
	if !s.drill || snap.Has(s.client) {
		return s, false
	}
	return Main(), true
}
