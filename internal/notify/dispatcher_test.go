package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_RunsTasksWithRetry(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DispatcherConfig{Workers: 2, QueueSize: 8, TaskTimeout: time.Second, Retry: fastRetry(3)}, discardLogger())

	var ok, flaky atomic.Int32
	for i := 0; i < 4; i++ {
		if err := d.Submit(Task{Name: "ok", Run: func(context.Context) error {
			ok.Add(1)
			return nil
		}}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := d.Submit(Task{Name: "flaky", Run: func(context.Context) error {
		if flaky.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if ok.Load() != 4 || flaky.Load() != 3 {
		t.Fatalf("expected 4 ok runs and 3 flaky attempts, got %d and %d", ok.Load(), flaky.Load())
	}
	if err := d.Submit(Task{Name: "late", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 1, TaskTimeout: time.Second}, discardLogger())
	release := make(chan struct{})
	started := make(chan struct{})

	_ = d.Submit(Task{Name: "blocker", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started
	if err := d.Submit(Task{Name: "queued", Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("expected one queued task to fit, got %v", err)
	}
	if err := d.Submit(Task{Name: "overflow", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDispatcher_TaskTimeoutAndPanic(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 4, TaskTimeout: 10 * time.Millisecond}, discardLogger())

	var deadlineHit atomic.Bool
	_ = d.Submit(Task{Name: "panics", Run: func(context.Context) error { panic("boom") }})
	_ = d.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return Permanent(ctx.Err())
	}})

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !deadlineHit.Load() {
		t.Fatalf("expected the slow task to hit its timeout")
	}
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 1, TaskTimeout: time.Minute}, discardLogger())
	started := make(chan struct{})
	_ = d.Submit(Task{Name: "stuck", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return Permanent(ctx.Err())
	}})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Close to give up on deadline, got %v", err)
	}
}
