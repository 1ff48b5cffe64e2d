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

// ReminderConfig configures the reminder scheduler.
type ReminderConfig struct {
	LeadTimes       scheduler.LeadTimes
	DeliveryTimeout time.Duration
}

// ReminderScheduler notifies organizers at fixed lead times before their meetings.
type ReminderScheduler struct {
	meetings ReminderStore
	presence PresenceDirectory
	sink     NotificationSink
	leads    scheduler.LeadTimes
	timeout  time.Duration
	logger   *slog.Logger
}

// NewReminderScheduler validates the lead times and constructs a scheduler.
func NewReminderScheduler(meetings ReminderStore, presence PresenceDirectory, sink NotificationSink, cfg ReminderConfig, logger *slog.Logger) (*ReminderScheduler, error) {
	leads := cfg.LeadTimes
	if len(leads) == 0 {
		leads = scheduler.DefaultLeadTimes
	}
	leads, err := leads.Normalize()
	if err != nil {
		return nil, err
	}
	return &ReminderScheduler{
		meetings: meetings,
		presence: presence,
		sink:     sink,
		leads:    leads,
		timeout:  cfg.DeliveryTimeout,
		logger:   defaultLogger(logger),
	}, nil
}

// LeadTimes returns the configured lead times, longest first.
func (s *ReminderScheduler) LeadTimes() scheduler.LeadTimes {
	return append(scheduler.LeadTimes(nil), s.leads...)
}

// FireDueReminders delivers a reminder for every meeting whose start falls in a
// lead time's window and whose flag for that lead time is unset, then sets the
// flag. Organizers without a live connection are skipped and stay eligible.
func (s *ReminderScheduler) FireDueReminders(ctx context.Context, now time.Time) (sent int, err error) {
	logger := serviceLogger(ctx, s.logger, "ReminderScheduler", "FireDueReminders")

	var errs []error
	for _, lead := range s.leads {
		if ctx.Err() != nil {
			errs = append(errs, mapStoreError(ctx.Err()))
			break
		}

		n, leadErr := s.fireLead(ctx, logger, lead, now)
		sent += n
		if leadErr != nil {
			errs = append(errs, leadErr)
		}
	}

	if sent > 0 {
		logger.InfoContext(ctx, "reminders delivered", "sent", sent)
	}
	return sent, errors.Join(errs...)
}

func (s *ReminderScheduler) fireLead(ctx context.Context, logger *slog.Logger, lead scheduler.LeadTime, now time.Time) (int, error) {
	window := lead.Window(now)
	minutes := lead.Minutes()

	due, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		StartsWithin:   &persistence.Window{Start: window.Start, End: window.End},
		ReminderUnsent: &minutes,
	})
	if err != nil {
		return 0, fmt.Errorf("lead %s: %w", lead.Key(), mapStoreError(err))
	}

	sent := 0
	var errs []error
	for _, m := range due {
		delivered, deliverErr := s.remind(ctx, lead, fromPersistenceMeeting(m), now)
		if delivered {
			sent++
		}
		if deliverErr != nil {
			logger.WarnContext(ctx, "reminder failed",
				"meeting_id", m.ID,
				"lead", lead.Key(),
				"error", deliverErr,
				"error_kind", ErrorKind(deliverErr),
			)
			errs = append(errs, fmt.Errorf("meeting %s lead %s: %w", m.ID, lead.Key(), deliverErr))
		}
	}
	return sent, errors.Join(errs...)
}

// remind delivers one reminder and records its flag.
func (s *ReminderScheduler) remind(ctx context.Context, lead scheduler.LeadTime, meeting Meeting, now time.Time) (bool, error) {
	if s.presence == nil || s.sink == nil {
		return false, nil
	}
	conn, ok := s.presence.ResolveConnection(meeting.Organizer.Email)
	if !ok {
		return false, nil
	}

	event := ReminderEvent{
		Kind:        ReminderEventKind,
		Message:     fmt.Sprintf("Your meeting %q is starting in %s.", meeting.Title, lead.Humanize()),
		MeetingID:   meeting.ID,
		Title:       meeting.Title,
		Start:       meeting.Start,
		RoomID:      meeting.RoomID,
		LeadMinutes: lead.Minutes(),
	}

	deliverCtx, cancel := withOptionalTimeout(ctx, s.timeout)
	err := s.sink.Deliver(deliverCtx, conn, event)
	cancel()
	if err != nil {
		if errors.Is(err, ErrDeliveryUnavailable) {
			return false, err
		}
		return false, fmt.Errorf("%w: %w", ErrDeliveryUnavailable, err)
	}

	if _, err := s.meetings.MarkReminderSent(ctx, meeting.ID, lead.Minutes(), now); err != nil {
		return true, mapStoreError(err)
	}
	return true, nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
