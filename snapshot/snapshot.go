// Package snapshot holds the typed shape of one polled traffic dataset.
//
// A Snapshot maps client ids (usually IP addresses) to their inbound/outbound
// byte counters and an optional per-protocol breakdown. Iteration follows the
// order in which keys were added, which for decoded snapshots is the order of
// the JSON document.
package snapshot

// ProtocolStats is the traffic of one client over one protocol.
type ProtocolStats struct {
	Inbound  uint64
	Outbound uint64
}

// ClientStats is the traffic of one client. Protocols may be empty when the
// backend reports no breakdown.
type ClientStats struct {
	Inbound   uint64
	Outbound  uint64
	Protocols Protocols
}

// Snapshot is immutable once built.
type Snapshot struct {
	clients orderedMap[ClientStats]
}

// Len returns the number of clients.
func (s Snapshot) Len() int { return s.clients.size() }

// Keys returns client ids in natural order. The slice is a copy.
func (s Snapshot) Keys() []string { return s.clients.keysCopy() }

// Get returns the stats for id.
func (s Snapshot) Get(id string) (ClientStats, bool) { return s.clients.get(id) }

// Has reports whether id is present.
func (s Snapshot) Has(id string) bool {
	_, ok := s.clients.get(id)
	return ok
}

// Range calls fn for each client in natural order until fn returns false.
func (s Snapshot) Range(fn func(id string, stats ClientStats) bool) {
	s.clients.each(fn)
}

// Protocols is an ordered protocol name -> stats mapping.
type Protocols struct {
	entries orderedMap[ProtocolStats]
}

func (p Protocols) Len() int { return p.entries.size() }

func (p Protocols) Names() []string { return p.entries.keysCopy() }

func (p Protocols) Get(name string) (ProtocolStats, bool) { return p.entries.get(name) }

func (p Protocols) Range(fn func(name string, stats ProtocolStats) bool) {
	p.entries.each(fn)
}

// NewProtocols builds a Protocols value from name/stats pairs in the given
// order. A repeated name keeps its first position and its last value.
func NewProtocols(pairs ...ProtocolEntry) Protocols {
	var p Protocols
	for _, e := range pairs {
		p.entries.put(e.Name, e.Stats)
	}
	return p
}

// ProtocolEntry is one input pair for NewProtocols.
type ProtocolEntry struct {
	Name  string
	Stats ProtocolStats
}

// Builder assembles a Snapshot. The zero value is ready to use.
type Builder struct {
	clients orderedMap[ClientStats]
	built   bool
}

// Add records stats for id. A repeated id keeps its first position and its
// last value.
func (b *Builder) Add(id string, stats ClientStats) *Builder {
	if b.built {
		// Snapshot shares storage with the builder; detach before mutating.
		b.clients = b.clients.clone()
		b.built = false
	}
	b.clients.put(id, stats)
	return b
}

// Snapshot returns the assembled snapshot.
func (b *Builder) Snapshot() Snapshot {
	b.built = true
	return Snapshot{clients: b.clients}
}

type orderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func (m *orderedMap[V]) put(key string, v V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m orderedMap[V]) get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m orderedMap[V]) size() int { return len(m.keys) }

func (m orderedMap[V]) keysCopy() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m orderedMap[V]) each(fn func(string, V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

func (m orderedMap[V]) clone() orderedMap[V] {
	out := orderedMap[V]{keys: m.keysCopy()}
	if m.values != nil {
		out.values = make(map[string]V, len(m.values))
		for k, v := range m.values {
			out.values[k] = v
		}
	}
	return out
}
