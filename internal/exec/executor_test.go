package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// drain collects all output chunks and the final done message from a task.
func drain(t *testing.T, task *Task) ([]string, Message) {
	t.Helper()
	var chunks []string
	for msg := range task.Messages() {
		switch msg.Kind {
		case MessageOutput:
			chunks = append(chunks, msg.Chunk)
		case MessageDone:
			return chunks, msg
		}
	}
	t.Fatal("message channel closed without a done message")
	return nil, Message{}
}

func TestSubmitRunsHandler(t *testing.T) {
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		return out.Emitf("got %s", line)
	}))

	task, err := e.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if task.ID() == "" {
		t.Error("task should have an ID")
	}
	if task.Line() != "hello" {
		t.Errorf("Line() = %q, want %q", task.Line(), "hello")
	}

	chunks, done := drain(t, task)
	if len(chunks) != 1 || chunks[0] != "got hello" {
		t.Errorf("chunks = %v, want [got hello]", chunks)
	}
	if done.Status != StatusOK {
		t.Errorf("status = %v, want ok", done.Status)
	}
	if done.Err != nil {
		t.Errorf("done.Err = %v, want nil", done.Err)
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	release := make(chan struct{})
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		<-release
		return nil
	}))

	first, err := e.Submit(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !e.Busy() {
		t.Error("Busy() = false while a command runs")
	}

	if _, err := e.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit() error = %v, want ErrBusy", err)
	}

	close(release)
	if _, done := drain(t, first); done.Status != StatusOK {
		t.Errorf("status = %v, want ok", done.Status)
	}

	// The slot frees up once the first task finishes.
	next, err := e.Submit(context.Background(), "third")
	if err != nil {
		t.Fatalf("Submit() after completion error = %v", err)
	}
	drain(t, next)
}

func TestSequenceNumbersIncrease(t *testing.T) {
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		return nil
	}))

	var prev uint64
	for i := 0; i < 3; i++ {
		task, err := e.Submit(context.Background(), "x")
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if task.Seq() <= prev {
			t.Errorf("Seq() = %d, want > %d", task.Seq(), prev)
		}
		prev = task.Seq()
		drain(t, task)
	}
}

func TestCancelReportsCancelled(t *testing.T) {
	started := make(chan struct{})
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	task, err := e.Submit(context.Background(), "forever")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	task.Cancel()
	task.Cancel() // idempotent

	_, done := drain(t, task)
	if done.Status != StatusCancelled {
		t.Errorf("status = %v, want cancelled", done.Status)
	}
	if !errors.Is(done.Err, context.Canceled) {
		t.Errorf("done.Err = %v, want context.Canceled", done.Err)
	}

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel not closed after completion")
	}
}

func TestCancelAfterSuccessStaysOK(t *testing.T) {
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		return out.Emit("done before cancel")
	}))

	task, err := e.Submit(context.Background(), "quick")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-task.Done()
	task.Cancel()

	_, done := drain(t, task)
	if done.Status != StatusOK {
		t.Errorf("status = %v, want ok for a handler that returned nil", done.Status)
	}
}

func TestEmitStopsOnCancel(t *testing.T) {
	emitErr := make(chan error, 1)
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		// Fill the buffer with nobody draining, then cancel; Emit must
		// return instead of blocking forever.
		for {
			if err := out.Emit("spam"); err != nil {
				emitErr <- err
				return err
			}
		}
	}))

	task, err := e.Submit(context.Background(), "flood")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	task.Cancel()

	select {
	case err := <-emitErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Emit() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Emit blocked despite cancellation")
	}
	drain(t, task)
}

func TestHandlerPanicBecomesError(t *testing.T) {
	e := NewExecutor(HandlerFunc(func(ctx context.Context, line string, out *Emitter) error {
		panic("boom")
	}))

	task, err := e.Submit(context.Background(), "explode")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, done := drain(t, task)
	if done.Status != StatusError {
		t.Errorf("status = %v, want error", done.Status)
	}
	var pe *PanicError
	if !errors.As(done.Err, &pe) {
		t.Fatalf("done.Err = %T, want *PanicError", done.Err)
	}
	if !strings.Contains(pe.Error(), "boom") {
		t.Errorf("panic error %q should mention the panic value", pe.Error())
	}

	// The executor survives a panicking handler.
	next, err := e.Submit(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Submit() after panic error = %v", err)
	}
	drain(t, next)
}

func TestSubmitWithoutHandler(t *testing.T) {
	e := NewExecutor(nil)
	if _, err := e.Submit(context.Background(), "x"); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Submit() error = %v, want ErrNoHandler", err)
	}
}
