package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/scheduler"
	"github.com/example/room-booking/internal/testfixtures"
)

func newTestRoomService(store *memory.Storage, clock *testfixtures.Clock) *RoomService {
	return NewRoomServiceWithLogger(store, store, testfixtures.NewIDGenerator("room").NextFunc(), clock.NowFunc(), discardLogger())
}

func TestRoomService_RegisterRoom(t *testing.T) {
	t.Parallel()

	store := memory.New()
	clock := testfixtures.NewClock(at(8, 0))
	service := newTestRoomService(store, clock)

	room, err := service.RegisterRoom(context.Background(), RoomInput{
		Name:     " Aurora ",
		Capacity: 6,
		Features: []string{"projector", " projector", "", "whiteboard"},
	})
	if err != nil {
		t.Fatalf("RegisterRoom: %v", err)
	}
	if room.ID != "room-1" || room.Name != "Aurora" {
		t.Fatalf("unexpected room %+v", room)
	}
	if !reflect.DeepEqual(room.Features, []string{"projector", "whiteboard"}) {
		t.Fatalf("unexpected features %v", room.Features)
	}

	explicit, err := service.RegisterRoom(context.Background(), RoomInput{ID: "boardroom", Name: "Boardroom", Capacity: 12})
	if err != nil || explicit.ID != "boardroom" {
		t.Fatalf("expected explicit ID to be kept, got %+v, %v", explicit, err)
	}
	if _, err := service.RegisterRoom(context.Background(), RoomInput{ID: "boardroom", Name: "Again", Capacity: 2}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRoomService_RegisterRoomValidation(t *testing.T) {
	t.Parallel()

	service := newTestRoomService(memory.New(), testfixtures.NewClock(at(8, 0)))
	_, err := service.RegisterRoom(context.Background(), RoomInput{Name: "", Capacity: 0})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "capacity"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected field %q in %v", field, vErr.FieldErrors)
		}
	}
}

func TestRoomService_GetRoomReadsThroughCache(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedRoom(t, store, "room-a")
	seedMeeting(t, store, persistence.Meeting{ID: "m1", RoomID: "room-a", Start: at(9, 0), End: at(10, 0)})
	service := newTestRoomService(store, testfixtures.NewClock(at(8, 0)))

	room, err := service.GetRoom(context.Background(), "room-a", "")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if !reflect.DeepEqual(room.MeetingIDs, []string{"m1"}) {
		t.Fatalf("unexpected meeting index %v", room.MeetingIDs)
	}
	if room.Availability == nil || room.Availability.AvailableMinutes != 1380 || room.Availability.AvailabilityPercentage != 95.83 {
		t.Fatalf("unexpected availability %+v", room.Availability)
	}
	if _, err := store.GetRoomAvailability(context.Background(), "room-a", at(0, 0)); err != nil {
		t.Fatalf("expected computed availability to be cached, got %v", err)
	}

	other, err := service.GetRoom(context.Background(), "room-a", "2024-01-03")
	if err != nil {
		t.Fatalf("GetRoom other day: %v", err)
	}
	if other.Availability.Date != "2024-01-03" || other.Availability.AvailableMinutes != scheduler.MinutesPerDay {
		t.Fatalf("unexpected availability for other day %+v", other.Availability)
	}
}

func TestRoomService_GetRoomErrors(t *testing.T) {
	t.Parallel()

	service := newTestRoomService(memory.New(), testfixtures.NewClock(at(8, 0)))
	if _, err := service.GetRoom(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err := service.GetRoom(context.Background(), "missing", "02/01/2024")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["date"] == "" {
		t.Fatalf("expected date validation error, got %v", err)
	}
}

func TestRoomService_RoomAvailability(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedRoom(t, store, "room-a")
	seedMeeting(t, store, persistence.Meeting{ID: "m1", RoomID: "room-a", Start: at(9, 0), End: at(10, 30)})
	service := newTestRoomService(store, testfixtures.NewClock(at(8, 0)))

	got, err := service.RoomAvailability(context.Background(), "room-a", "2024-01-02")
	if err != nil {
		t.Fatalf("RoomAvailability: %v", err)
	}
	if got.OccupiedMinutes != 90 || got.AvailabilityPercentage != 93.75 || len(got.FreeSlots) != 2 {
		t.Fatalf("unexpected availability %+v", got)
	}

	if _, err := service.RoomAvailability(context.Background(), "room-z", "2024-01-02"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomService_AvailabilityByDate(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedRoom(t, store, "room-a")
	seedRoom(t, store, "room-b")
	seedMeeting(t, store, persistence.Meeting{ID: "m1", RoomID: "room-b", Start: at(9, 0), End: at(10, 0)})
	service := newTestRoomService(store, testfixtures.NewClock(at(8, 0)))

	got, err := service.AvailabilityByDate(context.Background(), "2024-01-02")
	if err != nil {
		t.Fatalf("AvailabilityByDate: %v", err)
	}
	if len(got) != 2 || got[0].RoomID != "room-a" || got[0].AvailableMinutes != scheduler.MinutesPerDay || got[1].AvailableMinutes != 1380 {
		t.Fatalf("unexpected availability %+v", got)
	}

	rooms, err := service.ListRooms(context.Background())
	if err != nil || len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d, %v", len(rooms), err)
	}
}
