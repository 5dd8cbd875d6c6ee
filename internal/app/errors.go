package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called while the loop is active.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrNoBackend indicates no terminal backend was provided.
	ErrNoBackend = errors.New("no terminal backend")

	// ErrNoHandler indicates no command handler was provided.
	ErrNoHandler = errors.New("no command handler")

	// ErrBackendClosed indicates the terminal went away while the session
	// was still running.
	ErrBackendClosed = errors.New("terminal closed unexpectedly")
)

// InitError wraps a failure during session startup with the stage that
// failed.
type InitError struct {
	Stage string
	Err   error
}

// NewInitError creates an InitError.
func NewInitError(stage string, err error) *InitError {
	return &InitError{Stage: stage, Err: err}
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
