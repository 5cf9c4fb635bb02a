package projector

import (
	"reflect"
	"testing"

	"trafficdash/snapshot"
)

func mustDecode(t *testing.T, payload string) snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.Decode([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

const sample = `{
"10.0.0.1": {"inbound": 2048, "outbound": 1024, "protocols": {"TCP": {"inbound": 2048, "outbound": 1024}}},
"10.0.0.2": {"inbound": 300, "outbound": 7000, "protocols": {"UDP": {"inbound": 100, "outbound": 5000}, "ICMP": {"inbound": 200, "outbound": 2000}}},
"10.0.0.3": {"inbound": 5, "outbound": 6}
}`

func TestAggregateAlignsWithSnapshot(t *testing.T) {
	snap := mustDecode(t, sample)
	p := Aggregate(snap)
	if len(p.Labels) != snap.Len() || len(p.Inbound) != snap.Len() || len(p.Outbound) != snap.Len() {
		t.Fatalf("length mismatch: %d/%d/%d for %d keys", len(p.Labels), len(p.Inbound), len(p.Outbound), snap.Len())
	}
	for i, label := range p.Labels {
		c, ok := snap.Get(label)
		if !ok {
			t.Fatalf("label %q not in snapshot", label)
		}
		if p.Inbound[i] != c.Inbound || p.Outbound[i] != c.Outbound {
			t.Fatalf("index %d (%s): got %d/%d want %d/%d", i, label, p.Inbound[i], p.Outbound[i], c.Inbound, c.Outbound)
		}
	}
	if !reflect.DeepEqual(p.Labels, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}) {
		t.Fatalf("labels not in key order: %v", p.Labels)
	}
}

func TestAggregateEmpty(t *testing.T) {
	p := Aggregate(snapshot.Snapshot{})
	if p.Len() != 0 || p.Labels == nil {
		t.Fatalf("expected empty non-nil projection, got %#v", p)
	}
}

func TestDrilldownPerProtocol(t *testing.T) {
	snap := mustDecode(t, sample)
	p, ok := Drilldown(snap, "10.0.0.2")
	if !ok {
		t.Fatalf("expected drilldown available")
	}
	want := Projection{
		Labels:   []string{"UDP", "ICMP"},
		Inbound:  []uint64{100, 200},
		Outbound: []uint64{5000, 2000},
	}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("got %+v want %+v", p, want)
	}
}

func TestDrilldownNotAvailable(t *testing.T) {
	snap := mustDecode(t, sample)
	cases := []string{"10.0.0.3", "10.9.9.9", ""}
	for _, id := range cases {
		if _, ok := Drilldown(snap, id); ok {
			t.Fatalf("expected NotAvailable for %q", id)
		}
	}
	if _, ok := Drilldown(snapshot.Snapshot{}, "10.0.0.1"); ok {
		t.Fatalf("expected NotAvailable on empty snapshot")
	}
}

func TestProjectionIdempotent(t *testing.T) {
	snap := mustDecode(t, sample)
	a, b := Aggregate(snap), Aggregate(snap)
	if !reflect.DeepEqual(a, b) || a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("aggregate projection not idempotent")
	}
	d1, _ := Drilldown(snap, "10.0.0.1")
	d2, _ := Drilldown(snap, "10.0.0.1")
	if !reflect.DeepEqual(d1, d2) || d1.Fingerprint() != d2.Fingerprint() {
		t.Fatalf("drilldown projection not idempotent")
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	a := Projection{Labels: []string{"ab", "c"}, Inbound: []uint64{1, 2}, Outbound: []uint64{3, 4}}
	b := Projection{Labels: []string{"a", "bc"}, Inbound: []uint64{1, 2}, Outbound: []uint64{3, 4}}
	c := Projection{Labels: []string{"ab", "c"}, Inbound: []uint64{1, 2}, Outbound: []uint64{3, 5}}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("label boundary should change fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("value change should change fingerprint")
	}
}

func TestLabelsFingerprintIgnoresValues(t *testing.T) {
	a := Projection{Labels: []string{"ab", "c"}, Inbound: []uint64{1, 2}, Outbound: []uint64{3, 4}}
	b := Projection{Labels: []string{"a", "bc"}, Inbound: []uint64{1, 2}, Outbound: []uint64{3, 4}}
	c := Projection{Labels: []string{"ab", "c"}, Inbound: []uint64{9, 9}, Outbound: []uint64{9, 9}}
	if a.LabelsFingerprint() != c.LabelsFingerprint() {
		t.Fatalf("value change should not change labels fingerprint")
	}
	if a.LabelsFingerprint() == b.LabelsFingerprint() {
		t.Fatalf("label boundary should change labels fingerprint")
	}
}

func TestMax(t *testing.T) {
	p := Projection{Labels: []string{"a", "b"}, Inbound: []uint64{5, 1}, Outbound: []uint64{2, 9}}
	if p.Max() != 9 {
		t.Fatalf("expected max 9, got %d", p.Max())
	}
	if (Projection{}).Max() != 0 {
		t.Fatalf("expected zero max for empty projection")
	}
}
