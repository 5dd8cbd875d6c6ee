package exec

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// messageBuffer is the task message channel capacity. It absorbs bursts of
// output between event loop iterations; a full buffer backpressures the
// handler through Emit.
const messageBuffer = 64

// Task is one in-flight command execution. The event loop reads Messages
// until it is closed; anyone may call Cancel.
type Task struct {
	id       string
	seq      uint64
	line     string
	messages chan Message
	cancel   context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

func newTask(seq uint64, line string, cancel context.CancelFunc) *Task {
	return &Task{
		id:       uuid.NewString(),
		seq:      seq,
		line:     line,
		messages: make(chan Message, messageBuffer),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// ID returns the unique task identifier.
func (t *Task) ID() string {
	return t.id
}

// Seq returns the task's submission sequence number. Sequence numbers are
// monotonically increasing per executor, so the loop can discard messages
// from a superseded task.
func (t *Task) Seq() uint64 {
	return t.seq
}

// Line returns the command line being executed.
func (t *Task) Line() string {
	return t.line
}

// Messages returns the task's message stream. It is closed after the
// MessageDone message.
func (t *Task) Messages() <-chan Message {
	return t.messages
}

// Cancel requests cancellation. It is idempotent and returns immediately;
// completion is observed through the Done message or the Done channel.
func (t *Task) Cancel() {
	t.cancel()
}

// Done returns a channel closed when the handler has returned and the final
// message has been delivered.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish() {
	t.doneOnce.Do(func() {
		close(t.done)
	})
}
