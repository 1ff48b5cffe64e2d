// Package notify hands booking events to downstream transports off the request path.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the dispatcher queue has no free slot.
	ErrQueueFull = errors.New("notify: queue full")
	// ErrClosed is returned when tasks are submitted after Close.
	ErrClosed = errors.New("notify: dispatcher closed")
)

// Task is one unit of asynchronous work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Retry       RetryConfig
}

// DefaultDispatcherConfig returns the dispatcher defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:     4,
		QueueSize:   256,
		TaskTimeout: 5 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}

// Dispatcher runs submitted tasks on a fixed pool of workers. Each attempt gets
// its own timeout and failed attempts are retried with backoff.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger *slog.Logger

	queue  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the workers.
func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaults.TaskTimeout
	}
	if cfg.Retry.BackoffFactor < 1 {
		cfg.Retry.BackoffFactor = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:    cfg,
		logger: logger.With("component", "dispatcher"),
		queue:  make(chan Task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Submit enqueues task without blocking.
func (d *Dispatcher) Submit(task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- task:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s", ErrQueueFull, task.Name)
	}
}

// Close stops accepting tasks and waits for queued ones to finish. When ctx
// ends first, in-flight tasks are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for task := range d.queue {
		d.execute(id, task)
	}
}

func (d *Dispatcher) execute(worker int, task Task) {
	logger := d.logger.With("worker", worker, "task", task.Name)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	started := time.Now()
	err := Retry(d.ctx, d.cfg.Retry, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.TaskTimeout)
		defer cancel()
		return task.Run(attemptCtx)
	})
	if err != nil {
		logger.Error("task failed", "error", err, "duration", time.Since(started))
		return
	}
	logger.Debug("task completed", "duration", time.Since(started))
}
