// Package sweep drives the periodic meeting lifecycle and reminder passes.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/example/room-booking/internal/application"
)

// Reconciler advances meeting statuses.
type Reconciler interface {
	ReconcileAll(ctx context.Context, now time.Time) (int, error)
}

// Reminders fires due reminders.
type Reminders interface {
	FireDueReminders(ctx context.Context, now time.Time) (int, error)
}

// Config controls the sweep cadence.
type Config struct {
	Interval time.Duration
	// TickTimeout bounds one sweep. Zero uses the interval.
	TickTimeout time.Duration
}

// Result summarizes one sweep.
type Result struct {
	Now           time.Time
	StatusChanges int
	RemindersSent int
	Duration      time.Duration
	Err           error
}

// Runner reconciles statuses and then fires reminders on a fixed interval.
// A failing or panicking sweep is logged and the next one still runs.
type Runner struct {
	reconciler Reconciler
	reminders  Reminders
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger
}

// NewRunner constructs a runner. Either step may be nil.
func NewRunner(reconciler Reconciler, reminders Reminders, cfg Config, now func() time.Time, logger *slog.Logger) (*Runner, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sweep: interval must be positive, got %s", cfg.Interval)
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = cfg.Interval
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		reconciler: reconciler,
		reminders:  reminders,
		cfg:        cfg,
		now:        now,
		logger:     logger.With("component", "sweep"),
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "sweep started", "interval", r.cfg.Interval)
	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "sweep stopped")
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep at the current instant.
func (r *Runner) RunOnce(ctx context.Context) Result {
	started := time.Now()
	result := Result{Now: r.now().UTC()}

	tickCtx, cancel := context.WithTimeout(ctx, r.cfg.TickTimeout)
	defer cancel()

	var errs []error
	if r.reconciler != nil {
		err := r.guard(tickCtx, "reconcile", func() error {
			var err error
			result.StatusChanges, err = r.reconciler.ReconcileAll(tickCtx, result.Now)
			return err
		})
		errs = append(errs, err)
	}
	if r.reminders != nil {
		err := r.guard(tickCtx, "reminders", func() error {
			var err error
			result.RemindersSent, err = r.reminders.FireDueReminders(tickCtx, result.Now)
			return err
		})
		errs = append(errs, err)
	}

	result.Err = errors.Join(errs...)
	result.Duration = time.Since(started)

	attrs := []any{
		"status_changes", result.StatusChanges,
		"reminders_sent", result.RemindersSent,
		"duration", result.Duration,
	}
	if result.Err != nil {
		r.logger.WarnContext(ctx, "sweep finished with errors", append(attrs, "error", result.Err, "error_kind", application.ErrorKind(result.Err))...)
	} else {
		r.logger.DebugContext(ctx, "sweep finished", attrs...)
	}
	return result
}

func (r *Runner) guard(ctx context.Context, step string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "sweep step panicked", "step", step, "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s: panic: %v", step, p)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}
