// Package app wires the terminal backend, input line, history, render
// scheduler and command executor into a single-goroutine event loop.
package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/exec"
	"github.com/dshills/termrepl/internal/render"
	"github.com/dshills/termrepl/internal/render/backend"
)

// quitGrace bounds how long quitting waits for a cancelled command to
// acknowledge. A handler that ignores its context is abandoned; its
// goroutine dies with the process.
const quitGrace = 2 * time.Second

// Options configures a session.
type Options struct {
	// Config is the effective configuration. Zero value means defaults.
	Config config.Config

	// ConfigPath, when set, enables live reload of the file.
	ConfigPath string

	// Handler executes submitted command lines.
	Handler exec.Handler

	// Backend is the terminal. Tests pass a backend.Null.
	Backend backend.Backend

	// Logger receives diagnostics. Nil means discard.
	Logger *Logger

	// History seeds the history buffer, oldest first.
	History []string
}

// Application is one interactive session: a terminal, an input line, and a
// command executor, coordinated by the event loop in Run.
type Application struct {
	cfg      config.Config
	log      *Logger
	backend  backend.Backend
	view     *render.View
	sched    *render.Scheduler
	executor *exec.Executor
	session  *Session

	watcher *config.Watcher

	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a session from options. The terminal is not touched until
// Run.
func New(opts Options) (*Application, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}
	if opts.Handler == nil {
		return nil, ErrNoHandler
	}

	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewInitError("config", err)
	}

	log := opts.Logger
	if log == nil {
		log = NullLogger
	}

	app := &Application{
		cfg:      cfg,
		log:      log.WithComponent("app"),
		backend:  opts.Backend,
		sched:    render.NewScheduler(),
		executor: exec.NewExecutor(opts.Handler),
		session:  newSession(cfg),
		done:     make(chan struct{}),
	}
	if len(opts.History) > 0 {
		app.session.history.SetEntries(opts.History)
	}

	if opts.ConfigPath != "" {
		w, err := config.NewWatcher(opts.ConfigPath, 0)
		if err != nil {
			// Reload is a convenience; a session without it still works.
			app.log.Warn("config reload disabled: %v", err)
		} else {
			app.watcher = w
		}
	}
	return app, nil
}

// Run acquires the terminal and drives the event loop until quit. It
// returns nil on a normal quit. The terminal is restored on every exit
// path.
func (app *Application) Run() error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.backend.Init(); err != nil {
		return NewInitError("terminal", err)
	}
	defer app.backend.Fini()

	if app.watcher != nil {
		defer app.watcher.Close()
	}

	app.view = render.NewView(app.backend)
	app.sched.Request()

	app.log.Info("session started")
	err := app.loop()
	app.log.Info("session ended")
	return err
}

// Shutdown requests a quit from outside the loop. Safe to call at any
// time, from any goroutine, more than once.
func (app *Application) Shutdown() {
	app.doneOnce.Do(func() {
		close(app.done)
	})
}

// Running reports whether the event loop is active.
func (app *Application) Running() bool {
	return app.running.Load()
}

// Config returns the configuration the session started with.
func (app *Application) Config() config.Config {
	return app.cfg
}

// HistoryEntries returns the history buffer contents, oldest first. Call
// only after Run has returned; the loop owns the buffer while running.
func (app *Application) HistoryEntries() []string {
	return app.session.history.Entries()
}
