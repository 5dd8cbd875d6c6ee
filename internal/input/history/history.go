// Package history implements the bounded recall buffer for submitted lines.
//
// Entries are ordered oldest first. The buffer is exclusively owned by the
// event loop goroutine; background tasks never touch it, so no locking is
// needed.
package history

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 500

// Buffer holds previously submitted lines, newest last, bounded to a
// configured capacity with FIFO eviction.
type Buffer struct {
	entries  []string
	capacity int

	// browse is the recall cursor: -1 when not browsing, otherwise an
	// index into entries.
	browse int

	// pending holds the line that was being composed when browsing
	// started, restored when browsing steps past the newest entry.
	pending string
}

// New creates a buffer bounded to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
		browse:   -1,
	}
}

// Push appends a submitted line. Empty lines and lines identical to the
// newest entry are suppressed. Returns true if the line was stored.
// Pushing evicts the oldest entry when the buffer is full.
func (b *Buffer) Push(line string) bool {
	if line == "" {
		return false
	}
	if n := len(b.entries); n > 0 && b.entries[n-1] == line {
		return false
	}

	if len(b.entries) >= b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = line
		return true
	}

	b.entries = append(b.entries, line)
	return true
}

// RecallPrevious steps the recall cursor one entry toward older history and
// returns that entry. The first call snapshots current, the line being
// composed, so it can be restored when browsing exits. Returns false at the
// oldest entry (no wraparound).
func (b *Buffer) RecallPrevious(current string) (string, bool) {
	if len(b.entries) == 0 {
		return "", false
	}

	if b.browse < 0 {
		b.pending = current
		b.browse = len(b.entries) - 1
		return b.entries[b.browse], true
	}

	if b.browse == 0 {
		return "", false
	}
	b.browse--
	return b.entries[b.browse], true
}

// RecallNext steps toward newer entries. Stepping past the newest exits
// browsing and returns the restored pre-browse line. Returns false when not
// browsing.
func (b *Buffer) RecallNext() (string, bool) {
	if b.browse < 0 {
		return "", false
	}

	if b.browse == len(b.entries)-1 {
		b.browse = -1
		restored := b.pending
		b.pending = ""
		return restored, true
	}

	b.browse++
	return b.entries[b.browse], true
}

// Browsing reports whether the recall cursor is set.
func (b *Buffer) Browsing() bool {
	return b.browse >= 0
}

// ResetBrowse clears the recall cursor without touching stored entries.
func (b *Buffer) ResetBrowse() {
	b.browse = -1
	b.pending = ""
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Capacity returns the configured maximum.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// SetCapacity changes the maximum, evicting oldest entries if the buffer
// already holds more. Values below one are ignored.
func (b *Buffer) SetCapacity(n int) {
	if n < 1 {
		return
	}
	b.capacity = n
	if len(b.entries) > n {
		b.entries = append(b.entries[:0], b.entries[len(b.entries)-n:]...)
		b.ResetBrowse()
	}
}

// Entries returns a copy of the stored lines, oldest first.
func (b *Buffer) Entries() []string {
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

// SetEntries replaces the stored lines, keeping the newest entries when
// more than capacity are given. Resets any browse in progress.
func (b *Buffer) SetEntries(lines []string) {
	if len(lines) > b.capacity {
		lines = lines[len(lines)-b.capacity:]
	}
	b.entries = b.entries[:0]
	b.entries = append(b.entries, lines...)
	b.ResetBrowse()
}
