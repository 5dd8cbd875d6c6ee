package exec

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned by Submit while a command is still running and
	// the executor does not queue.
	ErrBusy = errors.New("a command is already running")

	// ErrNoHandler is returned by Submit when no handler is configured.
	ErrNoHandler = errors.New("no command handler configured")

	// ErrQuit is returned by a handler to request session shutdown. It is
	// a request, not a failure; callers check for it with errors.Is before
	// treating a result as an error.
	ErrQuit = errors.New("quit requested")
)

// PanicError wraps a panic recovered from a command handler. The handler
// goroutine must never take down the event loop; the panic surfaces as a
// failed command instead.
type PanicError struct {
	Value any
	Stack string
}

// NewPanicError creates a PanicError from a recovered value and stack trace.
func NewPanicError(value any, stack string) *PanicError {
	return &PanicError{Value: value, Stack: stack}
}

func (e *PanicError) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("command panicked: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("command panicked: %v", e.Value)
}
