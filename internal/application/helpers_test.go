package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// at returns the reference day at hh:mm UTC.
func at(hour, minute int) time.Time {
	ref := testfixtures.ReferenceTime()
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, time.UTC)
}

func seedRoom(t *testing.T, store *memory.Storage, id string) {
	t.Helper()
	if err := store.CreateRoom(context.Background(), persistence.Room{ID: id, Name: "Room " + id, Capacity: 8}); err != nil {
		t.Fatalf("seed room %s: %v", id, err)
	}
}

func seedMeeting(t *testing.T, store *memory.Storage, m persistence.Meeting) persistence.Meeting {
	t.Helper()
	if m.Status == "" {
		m.Status = "upcoming"
	}
	if m.Title == "" {
		m.Title = "Meeting " + m.ID
	}
	if m.Organizer.Email == "" {
		m.Organizer = persistence.Participant{Name: "Organizer", Email: "organizer@example.com"}
	}
	if err := store.CreateMeeting(context.Background(), m); err != nil {
		t.Fatalf("seed meeting %s: %v", m.ID, err)
	}
	return m
}

// faultyMeetings wraps a store and fails selected operations.
type faultyMeetings struct {
	*memory.Storage
	listErr   error
	createErr error
	statusErr map[string]error
	markErr   error
}

func (f *faultyMeetings) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Storage.ListMeetings(ctx, filter)
}

func (f *faultyMeetings) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Storage.CreateMeeting(ctx, meeting)
}

func (f *faultyMeetings) UpdateMeetingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) (bool, error) {
	if err := f.statusErr[id]; err != nil {
		return false, err
	}
	return f.Storage.UpdateMeetingStatus(ctx, id, from, to, updatedAt)
}

func (f *faultyMeetings) MarkReminderSent(ctx context.Context, id string, leadMinutes int, sentAt time.Time) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	return f.Storage.MarkReminderSent(ctx, id, leadMinutes, sentAt)
}

type stubConnection string

func (c stubConnection) Address() string { return string(c) }

type stubPresence map[string]bool

func (p stubPresence) ResolveConnection(address string) (Connection, bool) {
	if !p[address] {
		return nil, false
	}
	return stubConnection(address), true
}

type recordingSink struct {
	mu      sync.Mutex
	events  []ReminderEvent
	failFor map[string]error
}

func (s *recordingSink) Deliver(ctx context.Context, conn Connection, event ReminderEvent) error {
	if err := s.failFor[conn.Address()]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) delivered() []ReminderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ReminderEvent(nil), s.events...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []BookingEvent
	err    error
}

func (p *recordingPublisher) PublishBookingEvent(ctx context.Context, event BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

var errBoom = errors.New("boom")
