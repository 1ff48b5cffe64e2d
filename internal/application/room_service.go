package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// RoomService manages the room registry and serves availability reads.
type RoomService struct {
	rooms       RoomStore
	timeline    *AvailabilityTimeline
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomStore, meetings MeetingFinder, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, meetings, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomStore, meetings MeetingFinder, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	logger = defaultLogger(logger)
	return &RoomService{
		rooms:       rooms,
		timeline:    NewAvailabilityTimeline(meetings, rooms, now, logger),
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// RegisterRoom validates and stores a new room. An empty ID is generated.
func (s *RoomService) RegisterRoom(ctx context.Context, input RoomInput) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RegisterRoom")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room registered")
	}()

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "must be positive")
	}
	features := make([]string, 0, len(input.Features))
	seen := make(map[string]bool, len(input.Features))
	for _, f := range input.Features {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		features = append(features, f)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = s.idGenerator()
	}
	now := s.now().UTC()
	stored := persistence.Room{
		ID:        id,
		Name:      name,
		Capacity:  input.Capacity,
		Features:  features,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.rooms.CreateRoom(ctx, stored); err != nil {
		err = mapStoreError(err)
		return
	}
	room = fromPersistenceRoom(stored)
	return
}

// GetRoom returns a room with its meeting index and its cached availability for
// date, or for today when date is empty. A missing cache entry is computed and stored.
func (s *RoomService) GetRoom(ctx context.Context, id, date string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}

	day, err := s.resolveDay(date)
	if err != nil {
		return Room{}, err
	}

	stored, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return Room{}, mapStoreError(err)
	}
	room := fromPersistenceRoom(stored)

	cached, err := s.cachedAvailability(ctx, id, day)
	if err != nil {
		s.loggerWith(ctx, "GetRoom", "room_id", id).WarnContext(ctx, "room availability unavailable", "error", err)
		return room, nil
	}
	room.Availability = &cached
	return room, nil
}

// ListRooms returns every registered room ordered by name.
func (s *RoomService) ListRooms(ctx context.Context) ([]Room, error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}
	stored, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	rooms := make([]Room, len(stored))
	for i, r := range stored {
		rooms[i] = fromPersistenceRoom(r)
	}
	return rooms, nil
}

// RoomAvailability computes the full occupancy of a room on date, free slots included.
func (s *RoomService) RoomAvailability(ctx context.Context, roomID, date string) (Availability, error) {
	if s == nil {
		return Availability{}, fmt.Errorf("RoomService is nil")
	}

	day, err := s.resolveDay(date)
	if err != nil {
		return Availability{}, err
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return Availability{}, mapStoreError(err)
	}
	return s.timeline.refreshDay(ctx, roomID, day)
}

// AvailabilityByDate computes the availability of every room on date.
func (s *RoomService) AvailabilityByDate(ctx context.Context, date string) ([]Availability, error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}

	day, err := s.resolveDay(date)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}

	result := make([]Availability, 0, len(rooms))
	for _, r := range rooms {
		availability, err := s.timeline.refreshDay(ctx, r.ID, day)
		if err != nil {
			return nil, err
		}
		result = append(result, availability)
	}
	return result, nil
}

func (s *RoomService) cachedAvailability(ctx context.Context, roomID string, day scheduler.TimeRange) (RoomAvailability, error) {
	cached, err := s.rooms.GetRoomAvailability(ctx, roomID, day.Start)
	if err == nil {
		return RoomAvailability{
			Date:                   day.Start.Format(scheduler.DateLayout),
			AvailableMinutes:       cached.AvailableMinutes,
			AvailabilityPercentage: cached.Percentage,
			ComputedAt:             cached.ComputedAt,
		}, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return RoomAvailability{}, mapStoreError(err)
	}

	computed, err := s.timeline.refreshDay(ctx, roomID, day)
	if err != nil {
		return RoomAvailability{}, err
	}
	return RoomAvailability{
		Date:                   computed.Date,
		AvailableMinutes:       computed.AvailableMinutes,
		AvailabilityPercentage: computed.AvailabilityPercentage,
		ComputedAt:             s.now().UTC(),
	}, nil
}

func (s *RoomService) resolveDay(date string) (scheduler.TimeRange, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return scheduler.DayWindow(s.now()), nil
	}
	day, err := scheduler.ParseDate(date)
	if err != nil {
		vErr := &ValidationError{}
		vErr.addCause("date", "must be formatted as YYYY-MM-DD", err)
		return scheduler.TimeRange{}, vErr
	}
	return day, nil
}
