package notify

import (
	"context"
	"log/slog"

	"github.com/example/room-booking/internal/application"
)

// AsyncPublisher queues booking events on a Dispatcher and returns immediately.
type AsyncPublisher struct {
	dispatcher *Dispatcher
	target     application.BookingEventPublisher
}

// NewAsyncPublisher wraps target so that publishing never blocks a booking.
func NewAsyncPublisher(dispatcher *Dispatcher, target application.BookingEventPublisher) *AsyncPublisher {
	return &AsyncPublisher{dispatcher: dispatcher, target: target}
}

// PublishBookingEvent enqueues event. Only a full or closed queue is reported.
func (p *AsyncPublisher) PublishBookingEvent(_ context.Context, event application.BookingEvent) error {
	return p.dispatcher.Submit(Task{
		Name: event.Type + ":" + event.MeetingID,
		Run: func(ctx context.Context) error {
			return p.target.PublishBookingEvent(ctx, event)
		},
	})
}

// LogPublisher writes booking events to the log. It stands in for a broker in
// development setups.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "events")}
}

// PublishBookingEvent logs event at info level.
func (p *LogPublisher) PublishBookingEvent(ctx context.Context, event application.BookingEvent) error {
	p.logger.InfoContext(ctx, "booking event",
		"event_type", event.Type,
		"meeting_id", event.MeetingID,
		"room_id", event.RoomID,
		"organizer", event.Organizer.Email,
		"participants", len(event.Participants),
		"start", event.Start,
	)
	return nil
}

var (
	_ application.BookingEventPublisher = (*AsyncPublisher)(nil)
	_ application.BookingEventPublisher = (*LogPublisher)(nil)
)
