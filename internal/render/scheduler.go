// Package render decides when and how the REPL screen is painted. The
// Scheduler coalesces render requests into single paints; the View lays the
// prompt, input line and scrollback out as terminal cells.
package render

import "sync/atomic"

// Scheduler coalesces render requests. Any number of Request calls between
// two polls of ShouldRender collapse into one paint: Request only sets a
// flag, and the flag is cleared by exactly one completed paint.
type Scheduler struct {
	dirty atomic.Bool
}

// NewScheduler creates a scheduler with no pending render.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Request marks the visible state as possibly stale. Idempotent and O(1);
// callable from any goroutine.
func (s *Scheduler) Request() {
	s.dirty.Store(true)
}

// ShouldRender reports whether a paint is pending. Polled once per event
// loop iteration.
func (s *Scheduler) ShouldRender() bool {
	return s.dirty.Load()
}

// Clear acknowledges a completed paint.
func (s *Scheduler) Clear() {
	s.dirty.Store(false)
}
