package view

import (
	"testing"

	"trafficdash/snapshot"
)

func TestInitialStateIsMain(t *testing.T) {
	var s State
	if !s.IsMain() {
		t.Fatalf("zero State should be Main")
	}
	if _, ok := s.Client(); ok {
		t.Fatalf("Main should have no client")
	}
	if s != Main() {
		t.Fatalf("zero State should equal Main()")
	}
}

func TestSelectFromMain(t *testing.T) {
	labels := []string{"10.0.0.1", "10.0.0.2"}
	for i, want := range labels {
		next, changed := Main().Select(labels, i)
		if !changed {
			t.Fatalf("index %d: expected transition", i)
		}
		got, ok := next.Client()
		if !ok || got != want {
			t.Fatalf("index %d: got %v want drilldown(%s)", i, next, want)
		}
	}
}

func TestSelectIgnoredOutsideRange(t *testing.T) {
	labels := []string{"a"}
	for _, idx := range []int{-1, 1, 100} {
		next, changed := Main().Select(labels, idx)
		if changed || !next.IsMain() {
			t.Fatalf("index %d: expected no-op, got %v", idx, next)
		}
	}
	if _, changed := Main().Select(nil, 0); changed {
		t.Fatalf("select on empty chart should be a no-op")
	}
}

func TestSelectIgnoredInDrilldown(t *testing.T) {
	s := Drilldown("a")
	next, changed := s.Select([]string{"TCP", "UDP"}, 1)
	if changed || next != s {
		t.Fatalf("select in drilldown should be a no-op, got %v", next)
	}
}

func TestBack(t *testing.T) {
	next, changed := Drilldown("a").Back()
	if !changed || !next.IsMain() {
		t.Fatalf("back from drilldown should yield Main, got %v", next)
	}
	next, changed = Main().Back()
	if changed || !next.IsMain() {
		t.Fatalf("back in Main should be a no-op")
	}
}

func TestReconcile(t *testing.T) {
	var b snapshot.Builder
	snap := b.Add("a", snapshot.ClientStats{Inbound: 1}).Snapshot()

	if next, changed := Drilldown("a").Reconcile(snap); changed || next != Drilldown("a") {
		t.Fatalf("reconcile must not fire while client present")
	}
	if next, changed := Drilldown("gone").Reconcile(snap); !changed || !next.IsMain() {
		t.Fatalf("reconcile must return to Main when client vanished")
	}
	if next, changed := Main().Reconcile(snapshot.Snapshot{}); changed || !next.IsMain() {
		t.Fatalf("reconcile in Main is a no-op")
	}
}

func TestString(t *testing.T) {
	if Main().String() != "main" || Drilldown("x").String() != "drilldown(x)" {
		t.Fatalf("unexpected String output")
	}
}
