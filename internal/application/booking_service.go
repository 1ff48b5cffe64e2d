package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// BookingService creates, updates and cancels meetings. Every mutation runs the
// conflict check, derives the initial status and refreshes the cached
// availability of each room and day it touches.
type BookingService struct {
	meetings    MeetingStore
	rooms       RoomStore
	detector    *ConflictDetector
	timeline    *AvailabilityTimeline
	events      BookingEventPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(meetings MeetingStore, rooms RoomStore, events BookingEventPublisher, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(meetings, rooms, events, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(meetings MeetingStore, rooms RoomStore, events BookingEventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	logger = defaultLogger(logger)

	var cache AvailabilityCache
	if rooms != nil {
		cache = rooms
	}
	return &BookingService{
		meetings:    meetings,
		rooms:       rooms,
		detector:    NewConflictDetector(meetings, logger),
		timeline:    NewAvailabilityTimeline(meetings, cache, now, logger),
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateMeeting validates input, checks for conflicts and persists a new meeting.
func (s *BookingService) CreateMeeting(ctx context.Context, input MeetingInput) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateMeeting", "room_id", input.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", meeting.ID).InfoContext(ctx, "meeting created")
	}()

	normalized, vErr := validateMeetingInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	candidate := scheduler.TimeRange{Start: normalized.Start, End: normalized.End}

	if err = s.ensureRoomExists(ctx, normalized.RoomID); err != nil {
		return
	}
	if err = s.detector.CheckConflict(ctx, normalized.RoomID, candidate, ""); err != nil {
		return
	}

	now := s.now().UTC()
	meeting = Meeting{
		ID:           s.idGenerator(),
		Title:        normalized.Title,
		RoomID:       normalized.RoomID,
		Organizer:    normalized.Organizer,
		Participants: normalized.Participants,
		Start:        candidate.Start,
		End:          candidate.End,
		Status:       scheduler.DeriveStatus(now, candidate),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.meetings.CreateMeeting(ctx, toPersistenceMeeting(meeting)); err != nil {
		err = s.mapWriteError(ctx, err, meeting.RoomID, candidate, meeting.ID)
		meeting = Meeting{}
		return
	}

	s.refreshAvailability(ctx, logger, meeting.RoomID, candidate)
	s.publish(ctx, logger, newBookingEvent(BookingCreated, meeting, now))
	return
}

// UpdateMeeting re-validates and re-checks a meeting before replacing it.
func (s *BookingService) UpdateMeeting(ctx context.Context, id string, input MeetingInput) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateMeeting", "meeting_id", id, "room_id", input.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting updated")
	}()

	var stored persistence.Meeting
	if stored, err = s.meetings.GetMeeting(ctx, id); err != nil {
		err = mapStoreError(err)
		return
	}
	existing := fromPersistenceMeeting(stored)
	now := s.now().UTC()
	// a meeting past its end counts as completed even before the sweep records it
	if scheduler.Advance(existing.Status, now, existing.Range()) == scheduler.StatusCompleted {
		err = ErrMeetingCompleted
		return
	}

	normalized, vErr := validateMeetingInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	candidate := scheduler.TimeRange{Start: normalized.Start, End: normalized.End}

	if normalized.RoomID != existing.RoomID {
		if err = s.ensureRoomExists(ctx, normalized.RoomID); err != nil {
			return
		}
	}
	if err = s.detector.CheckConflict(ctx, normalized.RoomID, candidate, id); err != nil {
		return
	}

	meeting = existing
	meeting.Title = normalized.Title
	meeting.RoomID = normalized.RoomID
	meeting.Organizer = normalized.Organizer
	meeting.Participants = normalized.Participants
	meeting.Start = candidate.Start
	meeting.End = candidate.End
	meeting.Status = scheduler.Advance(existing.Status, now, candidate)
	meeting.UpdatedAt = now

	if err = s.meetings.UpdateMeeting(ctx, toPersistenceMeeting(meeting)); err != nil {
		err = s.mapWriteError(ctx, err, meeting.RoomID, candidate, id)
		meeting = Meeting{}
		return
	}

	// the store drops reminder flags together with a start change
	if !meeting.Start.Equal(existing.Start) {
		meeting.Reminders = nil
	}

	s.refreshAvailability(ctx, logger, existing.RoomID, existing.Range())
	if meeting.RoomID != existing.RoomID || !sameDays(meeting.Range(), existing.Range()) {
		s.refreshAvailability(ctx, logger, meeting.RoomID, candidate)
	}
	s.publish(ctx, logger, newBookingEvent(BookingUpdated, meeting, now))
	return
}

// DeleteMeeting cancels a meeting and removes it from its room.
func (s *BookingService) DeleteMeeting(ctx context.Context, id string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteMeeting", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting deleted")
	}()

	stored, err := s.meetings.GetMeeting(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	if err = s.meetings.DeleteMeeting(ctx, id); err != nil {
		return mapStoreError(err)
	}

	meeting := fromPersistenceMeeting(stored)
	s.refreshAvailability(ctx, logger, meeting.RoomID, meeting.Range())
	s.publish(ctx, logger, newBookingEvent(BookingCancelled, meeting, s.now().UTC()))
	return nil
}

// GetMeeting returns a meeting by ID.
func (s *BookingService) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	if s == nil {
		return Meeting{}, fmt.Errorf("BookingService is nil")
	}
	stored, err := s.meetings.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, mapStoreError(err)
	}
	return fromPersistenceMeeting(stored), nil
}

// ListMeetings returns meetings ordered by start, optionally limited to a room
// and to meetings overlapping [From, To).
func (s *BookingService) ListMeetings(ctx context.Context, query MeetingQuery) ([]Meeting, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}

	filter := persistence.MeetingFilter{RoomID: strings.TrimSpace(query.RoomID)}
	if !query.From.IsZero() || !query.To.IsZero() {
		window := scheduler.TimeRange{Start: query.From.UTC(), End: query.To.UTC()}
		if query.From.IsZero() {
			window.Start = time.Unix(0, 0).UTC()
		}
		if query.To.IsZero() {
			window.End = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		if err := window.Validate(); err != nil {
			vErr := &ValidationError{}
			vErr.addCause("to", "must be after from", err)
			return nil, vErr
		}
		filter.Overlapping = &persistence.Window{Start: window.Start, End: window.End}
	}

	stored, err := s.meetings.ListMeetings(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	meetings := make([]Meeting, len(stored))
	for i, m := range stored {
		meetings[i] = fromPersistenceMeeting(m)
	}
	return meetings, nil
}

func (s *BookingService) ensureRoomExists(ctx context.Context, roomID string) error {
	if s.rooms == nil {
		return nil
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// mapWriteError turns a storage-level overlap into a ConflictError carrying the
// meetings that won the race.
func (s *BookingService) mapWriteError(ctx context.Context, err error, roomID string, candidate scheduler.TimeRange, excludeID string) error {
	if !errors.Is(err, persistence.ErrOverlap) {
		return mapStoreError(err)
	}
	checkErr := s.detector.CheckConflict(ctx, roomID, candidate, excludeID)
	var conflict *ConflictError
	if errors.As(checkErr, &conflict) {
		return conflict
	}
	return &ConflictError{RoomID: roomID}
}

// refreshAvailability updates the cached availability. Failures are logged since
// the cache is rebuilt on the next read or mutation.
func (s *BookingService) refreshAvailability(ctx context.Context, logger *slog.Logger, roomID string, r scheduler.TimeRange) {
	if err := s.timeline.Refresh(ctx, roomID, scheduler.DaysCovered(r)...); err != nil {
		logger.WarnContext(ctx, "failed to refresh room availability", "room_id", roomID, "error", err)
	}
}

func (s *BookingService) publish(ctx context.Context, logger *slog.Logger, event BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish booking event", "event_type", event.Type, "error", err)
	}
}

func sameDays(a, b scheduler.TimeRange) bool {
	da, db := scheduler.DaysCovered(a), scheduler.DaysCovered(b)
	if len(da) != len(db) {
		return false
	}
	for i := range da {
		if !da[i].Equal(db[i]) {
			return false
		}
	}
	return true
}

func validateMeetingInput(input MeetingInput) (MeetingInput, *ValidationError) {
	vErr := &ValidationError{}
	out := MeetingInput{
		Title:  strings.TrimSpace(input.Title),
		RoomID: strings.TrimSpace(input.RoomID),
		Organizer: Participant{
			Name:  strings.TrimSpace(input.Organizer.Name),
			Email: strings.TrimSpace(input.Organizer.Email),
		},
		Start: input.Start.UTC(),
		End:   input.End.UTC(),
	}

	if out.Title == "" {
		vErr.add("title", "is required")
	}
	if out.RoomID == "" {
		vErr.add("room_id", "is required")
	}
	if out.Organizer.Email == "" {
		vErr.add("organizer.email", "is required")
	} else if !validAddress(out.Organizer.Email) {
		vErr.add("organizer.email", "must be a valid email address")
	}

	switch {
	case input.Start.IsZero():
		vErr.addCause("start", "is required", scheduler.ErrInvalidRange)
	case input.End.IsZero():
		vErr.addCause("end", "is required", scheduler.ErrInvalidRange)
	case !out.Start.Before(out.End):
		vErr.addCause("end", "must be after start", scheduler.ErrInvalidRange)
	}

	seen := make(map[string]bool, len(input.Participants))
	for i, p := range input.Participants {
		p = Participant{Name: strings.TrimSpace(p.Name), Email: strings.TrimSpace(p.Email)}
		if !validAddress(p.Email) {
			vErr.add(fmt.Sprintf("participants[%d].email", i), "must be a valid email address")
			continue
		}
		key := strings.ToLower(p.Email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Participants = append(out.Participants, p)
	}

	return out, vErr
}

func validAddress(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}
