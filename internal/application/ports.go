package application

import (
	"context"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// MeetingFinder lists stored meetings.
type MeetingFinder interface {
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
}

// MeetingStore is the full set of meeting persistence operations used by bookings.
type MeetingStore interface {
	MeetingFinder
	CreateMeeting(ctx context.Context, meeting persistence.Meeting) error
	UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error
	GetMeeting(ctx context.Context, id string) (persistence.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// StatusStore reads meetings and compare-and-sets their status.
type StatusStore interface {
	MeetingFinder
	UpdateMeetingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) (bool, error)
}

// ReminderStore reads meetings and records reminder flags.
type ReminderStore interface {
	MeetingFinder
	MarkReminderSent(ctx context.Context, id string, leadMinutes int, sentAt time.Time) (bool, error)
}

// RoomStore is the room persistence used by the services.
type RoomStore interface {
	CreateRoom(ctx context.Context, room persistence.Room) error
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	UpsertRoomAvailability(ctx context.Context, availability persistence.RoomAvailability) error
	GetRoomAvailability(ctx context.Context, roomID string, day time.Time) (persistence.RoomAvailability, error)
}

// DirectoryStore is the user directory persistence.
type DirectoryStore interface {
	CreateUser(ctx context.Context, user persistence.User) error
	SearchUsers(ctx context.Context, query string, limit int) ([]persistence.User, error)
}

// Connection is a live delivery channel for one contact address.
type Connection interface {
	Address() string
}

// PresenceDirectory maps contact addresses to live connections.
type PresenceDirectory interface {
	ResolveConnection(address string) (Connection, bool)
}

// NotificationSink pushes events to a resolved connection.
type NotificationSink interface {
	Deliver(ctx context.Context, conn Connection, event ReminderEvent) error
}

// BookingEventPublisher hands booking events to downstream consumers. Implementations
// are expected to return quickly; slow transports belong behind an async dispatcher.
type BookingEventPublisher interface {
	PublishBookingEvent(ctx context.Context, event BookingEvent) error
}
