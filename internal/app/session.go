package app

import (
	"strings"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/exec"
	"github.com/dshills/termrepl/internal/input/history"
	"github.com/dshills/termrepl/internal/input/line"
	"github.com/dshills/termrepl/internal/render"
)

// Mode is the session's input mode.
type Mode int

const (
	// ModeEditing accepts line edits and submissions.
	ModeEditing Mode = iota
	// ModeAwaitingCommand locks the line while a command runs without
	// overlapped editing.
	ModeAwaitingCommand
	// ModeQuitting drains the in-flight command before the loop exits.
	ModeQuitting
)

// Session is all loop-owned state. Only the event loop goroutine touches
// it, so there is no locking; everything else communicates through
// channels.
type Session struct {
	prompt     string
	overlapped bool

	line    *line.Line
	history *history.Buffer

	scroll    []render.ScrollLine
	scrollCap int

	mode    Mode
	task    *exec.Task
	pending []string
	status  string
	pasting bool
}

func newSession(cfg config.Config) *Session {
	return &Session{
		prompt:     cfg.Prompt,
		overlapped: cfg.Input.OverlappedEditing,
		line:       line.New(),
		history:    history.New(cfg.History.Capacity),
		scrollCap:  cfg.UI.ScrollbackLines,
	}
}

// appendScroll adds text to the display buffer, splitting embedded
// newlines, and evicts oldest lines past the cap.
func (s *Session) appendScroll(kind render.LineKind, text string) {
	for _, part := range strings.Split(text, "\n") {
		s.scroll = append(s.scroll, render.ScrollLine{Kind: kind, Text: part})
	}
	if over := len(s.scroll) - s.scrollCap; over > 0 {
		s.scroll = append(s.scroll[:0], s.scroll[over:]...)
	}
}

func (s *Session) clearScrollback() {
	s.scroll = s.scroll[:0]
}

// applyReload folds reload-safe settings into the running session.
func (s *Session) applyReload(cfg config.Config) {
	s.prompt = cfg.Prompt
	s.overlapped = cfg.Input.OverlappedEditing
	s.history.SetCapacity(cfg.History.Capacity)
	s.scrollCap = cfg.UI.ScrollbackLines
	if over := len(s.scroll) - s.scrollCap; over > 0 {
		s.scroll = append(s.scroll[:0], s.scroll[over:]...)
	}
}

// frame assembles the next paint from session state.
func (s *Session) frame() render.Frame {
	return render.Frame{
		Prompt:       s.prompt,
		Input:        s.line.Snapshot(),
		CursorColumn: s.line.CursorColumn(),
		InputActive:  s.mode == ModeEditing,
		Scrollback:   s.scroll,
		Status:       s.status,
	}
}
