package exec

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
)

// Handler executes one command line. Execute runs on a worker goroutine;
// it must honor ctx and write output only through out.
type Handler interface {
	Execute(ctx context.Context, line string, out *Emitter) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, line string, out *Emitter) error

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, line string, out *Emitter) error {
	return f(ctx, line, out)
}

// Executor runs one command at a time. Submit rejects with ErrBusy while a
// task is in flight; queueing, when enabled, is the caller's concern.
type Executor struct {
	handler Handler

	mu     sync.Mutex
	active *Task
	seq    uint64
}

// NewExecutor creates an executor backed by the given handler.
func NewExecutor(handler Handler) *Executor {
	return &Executor{handler: handler}
}

// Submit starts executing line on a worker goroutine. The returned task's
// message channel carries output chunks followed by exactly one MessageDone.
// ctx is the parent of the task context; cancelling it cancels the task.
func (e *Executor) Submit(ctx context.Context, line string) (*Task, error) {
	if e.handler == nil {
		return nil, ErrNoHandler
	}

	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.seq++
	taskCtx, cancel := context.WithCancel(ctx)
	t := newTask(e.seq, line, cancel)
	e.active = t
	e.mu.Unlock()

	go e.run(taskCtx, t)
	return t, nil
}

// Busy reports whether a command is currently in flight.
func (e *Executor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Active returns the in-flight task, or nil.
func (e *Executor) Active() *Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Executor) run(ctx context.Context, t *Task) {
	err := e.invoke(ctx, t)

	msg := Message{Kind: MessageDone}
	switch {
	case err == nil:
		// A handler that returns nil finished its work; a cancellation
		// that arrived too late to matter does not demote the result.
		msg.Status = StatusOK
	case errors.Is(err, context.Canceled):
		msg.Status = StatusCancelled
		msg.Err = err
	default:
		msg.Status = StatusError
		msg.Err = err
	}

	e.mu.Lock()
	if e.active == t {
		e.active = nil
	}
	e.mu.Unlock()

	t.messages <- msg
	close(t.messages)
	t.finish()
	t.cancel()
}

func (e *Executor) invoke(ctx context.Context, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r, string(debug.Stack()))
		}
	}()
	out := &Emitter{ctx: ctx, messages: t.messages}
	return e.handler.Execute(ctx, t.line, out)
}
