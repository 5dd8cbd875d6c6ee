// Package line implements the editable input line: a text buffer with a
// cursor that moves and edits by grapheme cluster, so multi-byte glyphs are
// never split.
//
// A Line is exclusively owned by the event loop goroutine. It is not
// safe for concurrent use and does not lock.
package line

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Line is the line currently being composed. The cursor is a byte offset
// into the text and always falls on a grapheme cluster boundary.
type Line struct {
	text     string
	cursor   int
	readOnly bool
}

// New creates an empty line.
func New() *Line {
	return &Line{}
}

// Insert inserts s at the cursor and advances the cursor past it.
// A no-op while the line is read-only.
func (l *Line) Insert(s string) {
	if l.readOnly || s == "" {
		return
	}
	var b strings.Builder
	b.Grow(len(l.text) + len(s))
	b.WriteString(l.text[:l.cursor])
	b.WriteString(s)
	b.WriteString(l.text[l.cursor:])
	l.text = b.String()
	l.cursor += len(s)
}

// InsertRune inserts a single rune at the cursor.
func (l *Line) InsertRune(r rune) {
	l.Insert(string(r))
}

// DeleteBackward removes the grapheme cluster before the cursor.
// Returns false at position 0 (no-op, not an error).
func (l *Line) DeleteBackward() bool {
	if l.readOnly || l.cursor == 0 {
		return false
	}
	start := prevBoundary(l.text, l.cursor)
	l.text = l.text[:start] + l.text[l.cursor:]
	l.cursor = start
	return true
}

// DeleteForward removes the grapheme cluster at the cursor.
// Returns false at the end of the line.
func (l *Line) DeleteForward() bool {
	if l.readOnly || l.cursor >= len(l.text) {
		return false
	}
	end := nextBoundary(l.text, l.cursor)
	l.text = l.text[:l.cursor] + l.text[end:]
	return true
}

// MoveCursor moves the cursor by delta grapheme clusters, clamped to the
// line bounds.
func (l *Line) MoveCursor(delta int) {
	for delta < 0 && l.cursor > 0 {
		l.cursor = prevBoundary(l.text, l.cursor)
		delta++
	}
	for delta > 0 && l.cursor < len(l.text) {
		l.cursor = nextBoundary(l.text, l.cursor)
		delta--
	}
}

// MoveToStart places the cursor at the beginning of the line.
func (l *Line) MoveToStart() {
	l.cursor = 0
}

// MoveToEnd places the cursor past the last cluster.
func (l *Line) MoveToEnd() {
	l.cursor = len(l.text)
}

// Clear resets the line to empty with the cursor at 0. Clearing works even
// while read-only: abort paths must always be able to reset the line.
func (l *Line) Clear() {
	l.text = ""
	l.cursor = 0
}

// SetText replaces the content and places the cursor at the end.
// Used when loading a history entry into the line.
func (l *Line) SetText(s string) {
	l.text = s
	l.cursor = len(s)
}

// Snapshot returns a read-only copy of the text for submission or painting.
func (l *Line) Snapshot() string {
	return l.text
}

// Cursor returns the cursor's byte offset.
func (l *Line) Cursor() int {
	return l.cursor
}

// CursorColumn returns the display column of the cursor, accounting for
// wide glyphs before it.
func (l *Line) CursorColumn() int {
	return uniseg.StringWidth(l.text[:l.cursor])
}

// Len returns the text length in bytes.
func (l *Line) Len() int {
	return len(l.text)
}

// IsEmpty returns true when nothing has been typed.
func (l *Line) IsEmpty() bool {
	return len(l.text) == 0
}

// SetReadOnly latches or releases the read-only state. While latched,
// edits are silently dropped.
func (l *Line) SetReadOnly(ro bool) {
	l.readOnly = ro
}

// ReadOnly reports whether edits are currently dropped.
func (l *Line) ReadOnly() bool {
	return l.readOnly
}

// prevBoundary returns the start of the grapheme cluster ending at off.
func prevBoundary(s string, off int) int {
	prev := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		start, end := g.Positions()
		if end >= off {
			return start
		}
		prev = end
	}
	return prev
}

// nextBoundary returns the end of the grapheme cluster starting at off.
func nextBoundary(s string, off int) int {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		_, end := g.Positions()
		if end > off {
			return end
		}
	}
	return len(s)
}
