package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/exec"
	"github.com/dshills/termrepl/internal/render/backend"
)

// echoHandler emits its argument; "quit" requests shutdown.
func echoHandler(ctx context.Context, line string, out *exec.Emitter) error {
	if line == "quit" {
		return exec.ErrQuit
	}
	return out.Emit("echo: " + line)
}

// newTestApp builds an application around a Null backend without running
// the loop; tests drive the handlers directly.
func newTestApp(t *testing.T, opts Options) (*Application, *backend.Null) {
	t.Helper()
	b := backend.NewNull(80, 24)
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	opts.Backend = b
	if opts.Handler == nil {
		opts.Handler = exec.HandlerFunc(echoHandler)
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return app, b
}

func typeText(app *Application, s string) {
	for _, r := range s {
		app.handleKey(backend.Event{Type: backend.EventKey, Key: backend.KeyRune, Rune: r})
	}
}

func press(app *Application, k backend.Key) {
	app.handleKey(backend.Event{Type: backend.EventKey, Key: k})
}

func pressCtrl(app *Application, r rune) {
	app.handleKey(backend.Event{Type: backend.EventKey, Key: backend.KeyCtrl, Rune: r, Mod: backend.ModCtrl})
}

// drainTask applies every message of the in-flight task, as the loop
// would.
func drainTask(t *testing.T, app *Application) {
	t.Helper()
	task := app.session.task
	if task == nil {
		t.Fatal("no task in flight")
	}
	for msg := range task.Messages() {
		app.applyTaskMessage(msg)
		if msg.Kind == exec.MessageDone {
			return
		}
	}
}

func scrollText(app *Application) string {
	var sb strings.Builder
	for _, sl := range app.session.scroll {
		sb.WriteString(sl.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{Handler: exec.HandlerFunc(echoHandler)}); !errors.Is(err, ErrNoBackend) {
		t.Errorf("New without backend: error = %v, want ErrNoBackend", err)
	}
	b := backend.NewNull(80, 24)
	if _, err := New(Options{Backend: b}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("New without handler: error = %v, want ErrNoHandler", err)
	}

	bad := config.Default()
	bad.Executor.Policy = "bogus"
	_, err := New(Options{Backend: b, Handler: exec.HandlerFunc(echoHandler), Config: bad})
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Errorf("New with bad config: error = %v, want InitError", err)
	}
}

func TestTypingEditsLine(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	typeText(app, "hello")
	press(app, backend.KeyLeft)
	press(app, backend.KeyBackspace)
	if got := app.session.line.Snapshot(); got != "helo" {
		t.Errorf("line = %q, want %q", got, "helo")
	}
}

func TestSubmitRunsCommandAndLocksLine(t *testing.T) {
	release := make(chan struct{})
	app, _ := newTestApp(t, Options{
		Handler: exec.HandlerFunc(func(ctx context.Context, line string, out *exec.Emitter) error {
			<-release
			return out.Emit("done")
		}),
	})

	typeText(app, "work")
	press(app, backend.KeyEnter)

	if app.session.task == nil {
		t.Fatal("no task after submit")
	}
	if app.session.mode != ModeAwaitingCommand {
		t.Errorf("mode = %v, want awaiting", app.session.mode)
	}
	if !strings.Contains(scrollText(app), "work") {
		t.Error("submitted command not echoed to scrollback")
	}

	// The locked line ignores edits but the session keeps accepting keys.
	typeText(app, "ignored")
	if !app.session.line.IsEmpty() {
		t.Errorf("locked line accepted edits: %q", app.session.line.Snapshot())
	}

	// A second Enter under the exclusive policy reports busy.
	press(app, backend.KeyEnter)
	typeText(app, "x") // no effect, line locked
	app.session.line.SetReadOnly(false)
	app.session.line.SetText("again")
	app.session.line.SetReadOnly(true)
	press(app, backend.KeyEnter)
	if !strings.Contains(app.session.status, "busy") {
		t.Errorf("status = %q, want busy notice", app.session.status)
	}

	close(release)
	drainTask(t, app)

	if app.session.mode != ModeEditing {
		t.Errorf("mode after done = %v, want editing", app.session.mode)
	}
	if app.session.line.ReadOnly() {
		t.Error("line still locked after command finished")
	}
	if !strings.Contains(scrollText(app), "done") {
		t.Error("command output missing from scrollback")
	}
}

func TestOverlappedEditingKeepsLineLive(t *testing.T) {
	cfg := config.Default()
	cfg.Input.OverlappedEditing = true
	release := make(chan struct{})
	app, _ := newTestApp(t, Options{
		Config: cfg,
		Handler: exec.HandlerFunc(func(ctx context.Context, line string, out *exec.Emitter) error {
			<-release
			return nil
		}),
	})

	typeText(app, "slow")
	press(app, backend.KeyEnter)
	if app.session.mode != ModeEditing {
		t.Errorf("mode = %v, want editing while overlapped", app.session.mode)
	}

	typeText(app, "next command")
	if got := app.session.line.Snapshot(); got != "next command" {
		t.Errorf("line = %q, want live editing", got)
	}
	close(release)
	drainTask(t, app)
}

func TestCtrlCCancelsRunningCommand(t *testing.T) {
	app, _ := newTestApp(t, Options{
		Handler: exec.HandlerFunc(func(ctx context.Context, line string, out *exec.Emitter) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})

	typeText(app, "forever")
	press(app, backend.KeyEnter)
	pressCtrl(app, 'c')
	if app.session.status != "cancelling" {
		t.Errorf("status = %q, want cancelling", app.session.status)
	}

	drainTask(t, app)
	if app.session.task != nil {
		t.Error("task not cleared after cancellation")
	}
	if !strings.Contains(scrollText(app), "cancelled") {
		t.Error("cancellation notice missing from scrollback")
	}
	if app.session.mode != ModeEditing {
		t.Errorf("mode = %v, want editing", app.session.mode)
	}
}

func TestCtrlCClearsIdleLine(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	typeText(app, "half typed")
	pressCtrl(app, 'c')
	if !app.session.line.IsEmpty() {
		t.Errorf("line = %q, want empty", app.session.line.Snapshot())
	}
	if app.session.mode != ModeEditing {
		t.Error("Ctrl+C on an idle session must not quit")
	}
}

func TestCtrlDQuitsOnEmptyIdleLine(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	pressCtrl(app, 'd')
	if app.session.mode != ModeQuitting {
		t.Errorf("mode = %v, want quitting", app.session.mode)
	}
}

func TestCtrlDDeletesWhenLineNotEmpty(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	typeText(app, "ab")
	press(app, backend.KeyHome)
	pressCtrl(app, 'd')
	if got := app.session.line.Snapshot(); got != "b" {
		t.Errorf("line = %q, want %q", got, "b")
	}
	if app.session.mode == ModeQuitting {
		t.Error("Ctrl+D on a non-empty line must not quit")
	}
}

func TestCtrlLClearsScrollback(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	typeText(app, "hi")
	press(app, backend.KeyEnter)
	drainTask(t, app)
	if len(app.session.scroll) == 0 {
		t.Fatal("expected scrollback content")
	}

	pressCtrl(app, 'l')
	if len(app.session.scroll) != 0 {
		t.Errorf("scrollback = %d lines after Ctrl+L, want 0", len(app.session.scroll))
	}
}

func TestLineEditingChords(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	typeText(app, "hello")
	pressCtrl(app, 'a')
	typeText(app, ">")
	pressCtrl(app, 'e')
	typeText(app, "<")
	if got := app.session.line.Snapshot(); got != ">hello<" {
		t.Errorf("line = %q, want %q", got, ">hello<")
	}
	pressCtrl(app, 'u')
	if !app.session.line.IsEmpty() {
		t.Error("Ctrl+U did not clear the line")
	}
}

func TestHistoryRecall(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	for _, cmd := range []string{"first", "second"} {
		typeText(app, cmd)
		press(app, backend.KeyEnter)
		drainTask(t, app)
	}

	typeText(app, "draft")
	press(app, backend.KeyUp)
	if got := app.session.line.Snapshot(); got != "second" {
		t.Errorf("after Up: line = %q, want %q", got, "second")
	}
	press(app, backend.KeyUp)
	if got := app.session.line.Snapshot(); got != "first" {
		t.Errorf("after Up Up: line = %q, want %q", got, "first")
	}
	press(app, backend.KeyDown)
	press(app, backend.KeyDown)
	if got := app.session.line.Snapshot(); got != "draft" {
		t.Errorf("browse exit: line = %q, want restored draft", got)
	}
}

func TestSeededHistory(t *testing.T) {
	app, _ := newTestApp(t, Options{History: []string{"older", "newer"}})
	press(app, backend.KeyUp)
	if got := app.session.line.Snapshot(); got != "newer" {
		t.Errorf("line = %q, want seeded entry", got)
	}
}

func TestQueuedPolicyRunsCommandsInOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Executor.Policy = config.PolicyQueued
	cfg.Input.OverlappedEditing = true
	release := make(chan struct{})
	first := true
	app, _ := newTestApp(t, Options{
		Config: cfg,
		Handler: exec.HandlerFunc(func(ctx context.Context, line string, out *exec.Emitter) error {
			if first {
				first = false
				<-release
			}
			return out.Emit("ran " + line)
		}),
	})

	typeText(app, "one")
	press(app, backend.KeyEnter)
	typeText(app, "two")
	press(app, backend.KeyEnter)

	if len(app.session.pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(app.session.pending))
	}
	if !strings.Contains(app.session.status, "queued") {
		t.Errorf("status = %q, want queued notice", app.session.status)
	}

	close(release)
	drainTask(t, app) // finishes "one", starts "two"

	if app.session.task == nil {
		t.Fatal("queued command not started")
	}
	if len(app.session.pending) != 0 {
		t.Errorf("pending = %d after dequeue, want 0", len(app.session.pending))
	}
	drainTask(t, app)

	out := scrollText(app)
	if !strings.Contains(out, "ran one") || !strings.Contains(out, "ran two") {
		t.Errorf("scrollback missing queued output:\n%s", out)
	}
	if strings.Index(out, "ran one") > strings.Index(out, "ran two") {
		t.Error("queued commands ran out of order")
	}
}

func TestQuitSentinelFromHandler(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	typeText(app, "quit")
	press(app, backend.KeyEnter)
	drainTask(t, app)
	if app.session.mode != ModeQuitting {
		t.Errorf("mode = %v, want quitting", app.session.mode)
	}
	if strings.Contains(scrollText(app), "error") {
		t.Error("quit must not be reported as an error")
	}
}

func TestHandlerErrorGoesToScrollback(t *testing.T) {
	app, _ := newTestApp(t, Options{
		Handler: exec.HandlerFunc(func(ctx context.Context, line string, out *exec.Emitter) error {
			return errors.New("kaboom")
		}),
	})
	typeText(app, "x")
	press(app, backend.KeyEnter)
	drainTask(t, app)
	if !strings.Contains(scrollText(app), "kaboom") {
		t.Error("handler error missing from scrollback")
	}
	if app.session.mode != ModeEditing {
		t.Errorf("mode = %v, want editing after a failed command", app.session.mode)
	}
}

func TestPasteCollapsesToOneLine(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	app.handleEvent(backend.Event{Type: backend.EventPaste, Start: true})
	typeText(app, "a")
	press(app, backend.KeyEnter)
	typeText(app, "b")
	app.handleEvent(backend.Event{Type: backend.EventPaste, Start: false})

	if got := app.session.line.Snapshot(); got != "a b" {
		t.Errorf("line = %q, want %q", got, "a b")
	}
	if app.session.task != nil {
		t.Error("Enter inside a paste must not submit")
	}

	press(app, backend.KeyUp) // recall works again after the paste
	_ = app.session.line.Snapshot()
}

func TestEmptySubmitIsIgnored(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	press(app, backend.KeyEnter)
	typeText(app, "   ")
	press(app, backend.KeyEnter)
	if app.session.task != nil {
		t.Error("blank line was submitted")
	}
	if app.session.history.Len() != 0 {
		t.Error("blank line was pushed to history")
	}
}

func TestReloadAppliesSafeFields(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	next := config.Default()
	next.Prompt = "new>"
	next.Executor.Policy = config.PolicyQueued // structural, must not apply
	app.applyReload(next)

	if app.session.prompt != "new>" {
		t.Errorf("prompt = %q, want reloaded value", app.session.prompt)
	}
	if app.cfg.Executor.Policy != config.PolicyExclusive {
		t.Error("executor policy changed across reload")
	}
}

func TestRunSmoke(t *testing.T) {
	b := backend.NewNull(80, 24)
	app, err := New(Options{Backend: b, Handler: exec.HandlerFunc(echoHandler)})
	if err != nil {
		t.Fatal(err)
	}

	b.PostText("quit")
	b.PostKey(backend.KeyEnter)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit on quit")
	}

	if b.ShowCount() == 0 {
		t.Error("no paints during the session")
	}
	if got := app.HistoryEntries(); len(got) != 1 || got[0] != "quit" {
		t.Errorf("HistoryEntries() = %q", got)
	}
}

func TestBackendClosureIsFatal(t *testing.T) {
	b := backend.NewNull(80, 24)
	app, err := New(Options{Backend: b, Handler: exec.HandlerFunc(echoHandler)})
	if err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for !app.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	b.PostEvent(backend.Event{Type: backend.EventClosed})

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrBackendClosed) {
			t.Errorf("Run() = %v, want ErrBackendClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit on backend closure")
	}
}

func TestShutdownStopsRun(t *testing.T) {
	b := backend.NewNull(80, 24)
	app, err := New(Options{Backend: b, Handler: exec.HandlerFunc(echoHandler)})
	if err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for !app.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	app.Shutdown()
	app.Shutdown() // idempotent

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit on Shutdown")
	}

	if err := app.Run(); err != nil {
		// A fresh Run after shutdown is allowed; it exits again on the
		// still-closed done channel.
		t.Errorf("second Run() = %v", err)
	}
}
