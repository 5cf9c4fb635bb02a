// Package projector flattens a snapshot into the (labels, inbound, outbound)
// triple a bar chart renderer consumes.
package projector

import (
	"encoding/binary"

	"trafficdash/snapshot"

	"github.com/zeebo/xxh3"
)

// Projection is one chart's worth of data. Labels, Inbound and Outbound always
// have the same length and index i lines up across all three.
type Projection struct {
	Labels   []string
	Inbound  []uint64
	Outbound []uint64
}

// Len returns the number of bar groups.
func (p Projection) Len() int { return len(p.Labels) }

// Max returns the largest value across both series.
func (p Projection) Max() uint64 {
	var max uint64
	for i := range p.Labels {
		if p.Inbound[i] > max {
			max = p.Inbound[i]
		}
		if p.Outbound[i] > max {
			max = p.Outbound[i]
		}
	}
	return max
}

// Fingerprint hashes the projection content. Equal projections hash equal.
func (p Projection) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for i, label := range p.Labels {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(label)))
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(label)
		binary.LittleEndian.PutUint64(buf[:], p.Inbound[i])
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], p.Outbound[i])
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// LabelsFingerprint hashes only the labels and their order. It identifies
// which bar group sits at each index, independent of the values.
func (p Projection) LabelsFingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, label := range p.Labels {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(label)))
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(label)
	}
	return h.Sum64()
}

// Aggregate projects one bar group per client, in the snapshot's key order.
// An empty snapshot yields an empty (non-nil) projection.
func Aggregate(s snapshot.Snapshot) Projection {
	n := s.Len()
	p := Projection{
		Labels:   make([]string, 0, n),
		Inbound:  make([]uint64, 0, n),
		Outbound: make([]uint64, 0, n),
	}
	s.Range(func(id string, c snapshot.ClientStats) bool {
		p.Labels = append(p.Labels, id)
		p.Inbound = append(p.Inbound, c.Inbound)
		p.Outbound = append(p.Outbound, c.Outbound)
		return true
	})
	return p
}

// Drilldown projects one bar group per protocol of client id. ok is false when
// the client is absent or reports no protocol breakdown.
func Drilldown(s snapshot.Snapshot, id string) (Projection, bool) {
	c, ok := s.Get(id)
	if !ok || c.Protocols.Len() == 0 {
		return Projection{}, false
	}
	n := c.Protocols.Len()
	p := Projection{
		Labels:   make([]string, 0, n),
		Inbound:  make([]uint64, 0, n),
		Outbound: make([]uint64, 0, n),
	}
	c.Protocols.Range(func(name string, ps snapshot.ProtocolStats) bool {
		p.Labels = append(p.Labels, name)
		p.Inbound = append(p.Inbound, ps.Inbound)
		p.Outbound = append(p.Outbound, ps.Outbound)
		return true
	})
	return p, true
}
