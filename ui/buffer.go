package ui

import (
	"sync"
	"sync/atomic"
	"time"
)

// LogLine is one line in the log pane.
type LogLine struct {
	Timestamp time.Time
	Message   string
}

// LineBuffer keeps the newest log lines within a count and byte budget.
// Append may be called from any goroutine.
type LineBuffer struct {
	mu       sync.RWMutex
	lines    []LogLine
	head     int
	count    int
	maxBytes int64
	curBytes int64
	seq      atomic.Uint64
	evicted  atomic.Uint64
	rejected atomic.Uint64
}

// NewLineBuffer creates a ring of maxCount lines. maxBytes <= 0 disables
// the byte budget.
func NewLineBuffer(maxCount int, maxBytes int64) *LineBuffer {
	if maxCount <= 0 {
		maxCount = 1
	}
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &LineBuffer{lines: make([]LogLine, maxCount), maxBytes: maxBytes}
}

// Append stores l, evicting the oldest lines as needed. A line larger than
// the whole byte budget is rejected.
func (b *LineBuffer) Append(l LogLine) bool {
	if b == nil {
		return false
	}
	size := int64(len(l.Message))
	if b.maxBytes > 0 && size > b.maxBytes {
		b.rejected.Add(1)
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.count >= len(b.lines) {
		b.evictOldestLocked()
	}
	for b.maxBytes > 0 && b.count > 0 && b.curBytes+size > b.maxBytes {
		b.evictOldestLocked()
	}
	pos := (b.head + b.count) % len(b.lines)
	b.lines[pos] = l
	b.curBytes += size
	b.count++
	b.seq.Add(1)
	return true
}

// SnapshotInto copies lines oldest-first into dst.
func (b *LineBuffer) SnapshotInto(dst []LogLine) []LogLine {
	if b == nil {
		return dst[:0]
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if cap(dst) < b.count {
		dst = make([]LogLine, b.count)
	} else {
		dst = dst[:b.count]
	}
	for i := 0; i < b.count; i++ {
		dst[i] = b.lines[(b.head+i)%len(b.lines)]
	}
	return dst
}

// Seq increments on every accepted line.
func (b *LineBuffer) Seq() uint64 {
	if b == nil {
		return 0
	}
	return b.seq.Load()
}

// Drops reports evicted and rejected line counts.
func (b *LineBuffer) Drops() (evicted, rejected uint64) {
	if b == nil {
		return 0, 0
	}
	return b.evicted.Load(), b.rejected.Load()
}

func (b *LineBuffer) evictOldestLocked() {
	if b.count == 0 {
		return
	}
	b.curBytes -= int64(len(b.lines[b.head].Message))
	b.lines[b.head] = LogLine{}
	b.head = (b.head + 1) % len(b.lines)
	b.count--
	b.evicted.Add(1)
}
