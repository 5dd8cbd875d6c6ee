// Package exec runs REPL commands on worker goroutines and streams their
// output back to the event loop as messages. The event loop never blocks on
// a command; a command never touches loop-owned state.
package exec

import (
	"context"
	"fmt"
)

// Status is the terminal result of a command execution.
type Status int

const (
	// StatusOK means the handler returned nil.
	StatusOK Status = iota
	// StatusError means the handler returned a non-cancellation error.
	StatusError
	// StatusCancelled means the command was cancelled before it finished.
	StatusCancelled
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MessageKind identifies the type of a task message.
type MessageKind int

const (
	// MessageOutput carries a chunk of command output.
	MessageOutput MessageKind = iota
	// MessageDone is the final message of a task. Exactly one is sent,
	// after which the message channel closes.
	MessageDone
)

// Message is one item on a task's message channel.
type Message struct {
	Kind MessageKind

	// Chunk is the output text for MessageOutput.
	Chunk string

	// Status and Err are set on MessageDone. Err holds the handler error
	// for StatusError, and may hold the cancellation cause for
	// StatusCancelled.
	Status Status
	Err    error
}

// Emitter streams output chunks from a handler to the task's message
// channel. Emit observes the task context so a cancelled command stops
// promptly even when the loop has stopped draining.
type Emitter struct {
	ctx      context.Context
	messages chan<- Message
}

// Emit sends one chunk of output. It returns the context error once the
// command is cancelled.
func (e *Emitter) Emit(chunk string) error {
	select {
	case e.messages <- Message{Kind: MessageOutput, Chunk: chunk}:
		return nil
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// Emitf formats and emits one chunk of output.
func (e *Emitter) Emitf(format string, args ...any) error {
	return e.Emit(fmt.Sprintf(format, args...))
}
