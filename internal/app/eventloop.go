package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/exec"
	"github.com/dshills/termrepl/internal/render"
	"github.com/dshills/termrepl/internal/render/backend"
)

// pumpEvents forwards terminal events onto a channel the loop can select
// on. It exits when the backend is finalized.
func (app *Application) pumpEvents(events chan<- backend.Event) {
	for {
		ev := app.backend.PollEvent()
		events <- ev
		if ev.Type == backend.EventClosed {
			return
		}
	}
}

// loop is the event loop: one goroutine owning all session state. Each
// iteration handles exactly one input, then paints at most once.
func (app *Application) loop() error {
	events := make(chan backend.Event, 32)
	go app.pumpEvents(events)

	var reloads <-chan config.Config
	var reloadErrs <-chan error
	if app.watcher != nil {
		reloads = app.watcher.Changes()
		reloadErrs = app.watcher.Errors()
	}

	doneCh := app.done
	var graceCh <-chan time.Time

	for {
		s := app.session
		if s.mode == ModeQuitting && s.task == nil {
			return nil
		}
		if s.mode == ModeQuitting && graceCh == nil {
			graceCh = time.After(quitGrace)
		}

		var taskCh <-chan exec.Message
		if s.task != nil {
			taskCh = s.task.Messages()
		}

		select {
		case ev := <-events:
			if ev.Type == backend.EventClosed {
				if s.mode == ModeQuitting {
					return nil
				}
				app.log.Error("terminal closed while running")
				return ErrBackendClosed
			}
			app.handleEvent(ev)

		case msg, ok := <-taskCh:
			if !ok {
				s.task = nil
				continue
			}
			app.applyTaskMessage(msg)

		case cfg := <-reloads:
			app.applyReload(cfg)

		case err := <-reloadErrs:
			app.log.Warn("config reload failed: %v", err)
			s.status = "config reload failed, previous settings kept"
			app.sched.Request()

		case <-graceCh:
			app.log.Warn("command %s ignored cancellation, abandoning it", s.task.ID())
			s.task = nil

		case <-doneCh:
			doneCh = nil
			app.beginQuit()
		}

		if app.sched.ShouldRender() {
			app.sched.Clear()
			app.view.Render(s.frame())
		}
	}
}

func (app *Application) handleEvent(ev backend.Event) {
	switch ev.Type {
	case backend.EventResize:
		app.view.Resize(ev.Width, ev.Height)
		app.sched.Request()
	case backend.EventPaste:
		app.session.pasting = ev.Start
	case backend.EventKey:
		app.handleKey(ev)
	}
}

// handleKey applies one key event to the session. Line edits on a locked
// line are no-ops inside the line itself; control chords stay live so a
// running command can always be cancelled.
func (app *Application) handleKey(ev backend.Event) {
	s := app.session
	if s.mode == ModeQuitting {
		return
	}
	defer app.sched.Request()

	if ev.Key == backend.KeyCtrl {
		app.handleCtrlKey(ev.Rune)
		return
	}

	switch ev.Key {
	case backend.KeyEnter:
		if s.pasting {
			// A multi-line paste collapses onto the single input line.
			s.line.Insert(" ")
			return
		}
		app.submitLine()
	case backend.KeyBackspace:
		s.line.DeleteBackward()
	case backend.KeyDelete:
		s.line.DeleteForward()
	case backend.KeyLeft:
		s.line.MoveCursor(-1)
	case backend.KeyRight:
		s.line.MoveCursor(1)
	case backend.KeyHome:
		s.line.MoveToStart()
	case backend.KeyEnd:
		s.line.MoveToEnd()
	case backend.KeyUp:
		if !s.pasting {
			app.recallPrevious()
		}
	case backend.KeyDown:
		if !s.pasting {
			app.recallNext()
		}
	case backend.KeyEscape:
		s.history.ResetBrowse()
		s.status = ""
	case backend.KeyRune:
		s.line.InsertRune(ev.Rune)
	}
}

func (app *Application) handleCtrlKey(r rune) {
	s := app.session
	switch r {
	case 'c':
		if s.task != nil {
			s.task.Cancel()
			s.status = "cancelling"
			return
		}
		s.line.Clear()
		s.history.ResetBrowse()
		s.status = ""
	case 'd':
		if s.line.IsEmpty() && s.task == nil {
			app.beginQuit()
			return
		}
		s.line.DeleteForward()
	case 'l':
		s.clearScrollback()
	case 'u':
		s.line.Clear()
	case 'a':
		s.line.MoveToStart()
	case 'e':
		s.line.MoveToEnd()
	}
}

func (app *Application) recallPrevious() {
	s := app.session
	if s.mode != ModeEditing {
		return
	}
	if text, ok := s.history.RecallPrevious(s.line.Snapshot()); ok {
		s.line.SetText(text)
	}
}

func (app *Application) recallNext() {
	s := app.session
	if s.mode != ModeEditing {
		return
	}
	if text, ok := s.history.RecallNext(); ok {
		s.line.SetText(text)
	}
}

// submitLine hands the composed line to the executor, or queues or rejects
// it while a command is still running.
func (app *Application) submitLine() {
	s := app.session
	text := strings.TrimSpace(s.line.Snapshot())
	if text == "" {
		return
	}

	if s.task != nil {
		if app.cfg.Executor.Policy == config.PolicyQueued {
			s.pending = append(s.pending, text)
			s.history.Push(text)
			s.history.ResetBrowse()
			s.line.Clear()
			s.status = fmt.Sprintf("%d command(s) queued", len(s.pending))
			return
		}
		s.status = "busy: a command is running (Ctrl+C to cancel)"
		app.backend.Beep()
		return
	}

	s.history.Push(text)
	app.startCommand(text)
}

// startCommand echoes and launches one command line. History bookkeeping
// belongs to the caller.
func (app *Application) startCommand(text string) {
	s := app.session
	s.history.ResetBrowse()
	s.line.Clear()
	s.appendScroll(render.LineCommand, text)
	s.status = ""

	task, err := app.executor.Submit(context.Background(), text)
	if err != nil {
		s.appendScroll(render.LineError, err.Error())
		app.log.Error("submit failed: %v", err)
		return
	}
	app.log.Debug("command started: %s", task.ID())
	s.task = task
	if !s.overlapped {
		s.mode = ModeAwaitingCommand
		s.line.SetReadOnly(true)
	}
}

// applyTaskMessage folds one executor message into the session.
func (app *Application) applyTaskMessage(msg exec.Message) {
	s := app.session
	defer app.sched.Request()

	switch msg.Kind {
	case exec.MessageOutput:
		s.appendScroll(render.LineOutput, msg.Chunk)

	case exec.MessageDone:
		s.task = nil
		s.line.SetReadOnly(false)
		if s.mode == ModeAwaitingCommand {
			s.mode = ModeEditing
		}
		s.status = ""

		switch msg.Status {
		case exec.StatusOK:
		case exec.StatusCancelled:
			s.appendScroll(render.LineStatus, "cancelled")
		case exec.StatusError:
			if errors.Is(msg.Err, exec.ErrQuit) {
				app.beginQuit()
				return
			}
			s.appendScroll(render.LineError, "error: "+msg.Err.Error())
		}

		if s.mode == ModeEditing && len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = append(s.pending[:0], s.pending[1:]...)
			app.startCommand(next)
		}
	}
}

// applyReload folds a changed configuration file into the running session.
// Only reload-safe fields apply; the rest wait for a restart.
func (app *Application) applyReload(next config.Config) {
	app.cfg = app.cfg.Reloadable(next)
	app.session.applyReload(app.cfg)
	app.session.status = "configuration reloaded"
	app.log.Info("configuration reloaded")
	app.sched.Request()
}

// beginQuit starts shutdown: any running command is cancelled and the loop
// drains it, bounded by quitGrace, before exiting.
func (app *Application) beginQuit() {
	s := app.session
	s.mode = ModeQuitting
	s.status = "exiting"
	if s.task != nil {
		s.task.Cancel()
	}
	app.sched.Request()
}
