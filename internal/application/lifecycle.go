package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// LifecycleReconciler moves stored meetings through upcoming, running and completed.
type LifecycleReconciler struct {
	meetings StatusStore
	logger   *slog.Logger
}

// NewLifecycleReconciler constructs a reconciler over meetings.
func NewLifecycleReconciler(meetings StatusStore, logger *slog.Logger) *LifecycleReconciler {
	return &LifecycleReconciler{meetings: meetings, logger: defaultLogger(logger)}
}

// ReconcileAll recomputes the status of every meeting that can still change and
// writes those that differ. A failed write does not stop the remaining meetings;
// the returned error joins every per-meeting failure.
func (r *LifecycleReconciler) ReconcileAll(ctx context.Context, now time.Time) (changed int, err error) {
	logger := serviceLogger(ctx, r.logger, "LifecycleReconciler", "ReconcileAll")

	// completed meetings never change again
	meetings, err := r.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		Statuses: []string{string(scheduler.StatusUpcoming), string(scheduler.StatusRunning)},
	})
	if err != nil {
		return 0, mapStoreError(err)
	}

	var errs []error
	for _, m := range meetings {
		if ctx.Err() != nil {
			errs = append(errs, mapStoreError(ctx.Err()))
			break
		}

		current := scheduler.Status(m.Status)
		target := scheduler.Advance(current, now, scheduler.TimeRange{Start: m.Start, End: m.End})
		if target == current {
			continue
		}

		updated, updateErr := r.meetings.UpdateMeetingStatus(ctx, m.ID, m.Status, string(target), now)
		if updateErr != nil {
			updateErr = mapStoreError(updateErr)
			logger.WarnContext(ctx, "failed to update meeting status",
				"meeting_id", m.ID,
				"target_status", target,
				"error", updateErr,
				"error_kind", ErrorKind(updateErr),
			)
			errs = append(errs, fmt.Errorf("meeting %s: %w", m.ID, updateErr))
			continue
		}
		if updated {
			changed++
		}
	}

	if changed > 0 {
		logger.InfoContext(ctx, "meeting statuses reconciled", "changed", changed, "scanned", len(meetings))
	}
	return changed, errors.Join(errs...)
}
