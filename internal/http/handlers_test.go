package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiHarness struct {
	store   *memory.Storage
	clock   *testfixtures.Clock
	handler http.Handler
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	store := memory.New()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	ids := testfixtures.NewIDGenerator("id")
	logger := discardLogger()

	rooms := application.NewRoomServiceWithLogger(store, store, ids.NextFunc(), clock.NowFunc(), logger)
	bookings := application.NewBookingServiceWithLogger(store, store, nil, ids.NextFunc(), clock.NowFunc(), logger)
	directory := application.NewDirectoryServiceWithLogger(store, ids.NextFunc(), clock.NowFunc(), logger)

	return &apiHarness{
		store: store,
		clock: clock,
		handler: NewRouter(RouterConfig{
			Rooms:     NewRoomHandler(rooms, logger),
			Meetings:  NewMeetingHandler(bookings, logger),
			Directory: NewDirectoryHandler(directory, logger),
			Health:    NewHealthHandler(store, 0, logger),
			Logger:    logger,
		}),
	}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (h *apiHarness) createRoom(t *testing.T, id string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/rooms", map[string]any{"id": id, "name": "Room " + id, "capacity": 6, "features": []string{"screen"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func meetingBody(roomID, start, end string) map[string]any {
	return map[string]any{
		"title":        "Sprint planning",
		"room_id":      roomID,
		"organizer":    map[string]string{"name": "Ada", "email": "ada@example.com"},
		"participants": []map[string]string{{"name": "Grace", "email": "grace@example.com"}},
		"start":        start,
		"end":          end,
	}
}

func TestRoomHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	h.createRoom(t, "room-a")

	t.Run("duplicate room conflicts", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/rooms", map[string]any{"id": "room-a", "name": "Again", "capacity": 2})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("invalid room is rejected", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/rooms", map[string]any{"name": "", "capacity": 0})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.Errors["name"] == "" || body.Errors["capacity"] == "" {
			t.Fatalf("expected field errors, got %+v", body)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("get includes availability", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/rooms/room-a?date=2024-01-02", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[roomResponse](t, rec)
		if body.Room.Availability == nil || body.Room.Availability.AvailabilityPercentage != 100 {
			t.Fatalf("unexpected availability %+v", body.Room.Availability)
		}
		if body.Room.Features[0] != "screen" || body.Room.MeetingIDs == nil {
			t.Fatalf("unexpected room %+v", body.Room)
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		if rec := h.do(t, http.MethodGet, "/rooms/missing", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/rooms/room-a/availability?date=tomorrow", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if body := decodeBody[errorResponse](t, rec); body.Errors["date"] == "" {
			t.Fatalf("expected date field error, got %+v", body)
		}
	})

	t.Run("list", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/rooms", nil)
		if body := decodeBody[listRoomsResponse](t, rec); rec.Code != http.StatusOK || len(body.Rooms) != 1 {
			t.Fatalf("unexpected list response %d %+v", rec.Code, body)
		}
	})
}

func TestDirectoryHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	for i := 0; i < 12; i++ {
		rec := h.do(t, http.MethodPost, "/users", map[string]string{"name": fmt.Sprintf("Taylor %02d", i), "email": fmt.Sprintf("taylor%02d@example.com", i)})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create user: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	t.Run("created user echoes autocomplete fields", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/users", map[string]string{"name": "Jordan Lee", "email": "Jordan@Example.com"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody[userResponse](t, rec)
		if body.User.Value != "Jordan Lee" || body.User.Label != "Jordan Lee" || body.User.Email != "jordan@example.com" || body.User.ID == "" {
			t.Fatalf("unexpected user %+v", body.User)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/users", map[string]string{"name": "Another Jordan", "email": "JORDAN@example.com"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/users", map[string]string{})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.Errors["name"] == "" || body.Errors["email"] == "" {
			t.Fatalf("expected name and email field errors, got %+v", body)
		}
	})

	t.Run("short query is rejected", func(t *testing.T) {
		for _, path := range []string{"/users/search", "/users/search?query=ta"} {
			rec := h.do(t, http.MethodGet, path, nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("%s: expected 422, got %d", path, rec.Code)
			}
			if body := decodeBody[errorResponse](t, rec); body.Errors["query"] == "" {
				t.Fatalf("%s: expected query field error, got %+v", path, body)
			}
		}
	})

	t.Run("search is case insensitive and capped", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/users/search?query=TAY", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[searchUsersResponse](t, rec)
		if len(body.Users) != application.MaxSearchResults || body.Users[0].Value != "Taylor 00" {
			t.Fatalf("expected %d users starting at Taylor 00, got %+v", application.MaxSearchResults, body.Users)
		}
	})

	t.Run("three character query matches", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/users/search?query=dan", nil)
		body := decodeBody[searchUsersResponse](t, rec)
		if rec.Code != http.StatusOK || len(body.Users) != 1 || body.Users[0].Email != "jordan@example.com" {
			t.Fatalf("unexpected search response %d %+v", rec.Code, body)
		}
	})
}

func TestMeetingHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	h.createRoom(t, "room-a")

	rec := h.do(t, http.MethodPost, "/meetings", meetingBody("room-a", "2024-01-02T17:00:00Z", "2024-01-02T18:00:00Z"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create meeting: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[meetingResponse](t, rec).Meeting
	if created.Status != "upcoming" || created.Start != "2024-01-02T17:00:00Z" || len(created.Participants) != 1 {
		t.Fatalf("unexpected meeting %+v", created)
	}

	t.Run("conflict lists overlaps", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/meetings", meetingBody("room-a", "2024-01-02T17:30:00Z", "2024-01-02T18:30:00Z"))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.ErrorCode != "BOOKING_CONFLICT" || len(body.Overlaps) != 1 || body.Overlaps[0].MeetingID != created.ID {
			t.Fatalf("unexpected conflict body %+v", body)
		}
	})

	t.Run("unparseable instant names the field", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/meetings", meetingBody("room-a", "tomorrow at noon", "2024-01-02T18:30:00Z"))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if body := decodeBody[errorResponse](t, rec); body.Errors["start"] == "" {
			t.Fatalf("expected start field error, got %+v", body)
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/meetings", meetingBody("room-a", "2024-01-02T19:00:00Z", "2024-01-02T18:30:00Z"))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if body := decodeBody[errorResponse](t, rec); body.ErrorCode != "INVALID_RANGE" {
			t.Fatalf("expected INVALID_RANGE, got %+v", body)
		}
	})

	t.Run("get, list and availability", func(t *testing.T) {
		if rec := h.do(t, http.MethodGet, "/meetings/"+created.ID, nil); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		rec := h.do(t, http.MethodGet, "/meetings?room_id=room-a&from=2024-01-02T00:00:00Z&to=2024-01-03T00:00:00Z", nil)
		if body := decodeBody[listMeetingsResponse](t, rec); len(body.Meetings) != 1 {
			t.Fatalf("expected one meeting, got %+v", body)
		}
		if rec := h.do(t, http.MethodGet, "/meetings?from=yesterday", nil); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for bad from, got %d", rec.Code)
		}

		rec = h.do(t, http.MethodGet, "/rooms/availability/2024-01-02", nil)
		body := decodeBody[availabilityByDateResponse](t, rec)
		if len(body.Rooms) != 1 || body.Rooms[0].AvailableMinutes != 1380 || body.Rooms[0].AvailabilityPercentage != 95.83 {
			t.Fatalf("unexpected availability %+v", body)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		rec := h.do(t, http.MethodPut, "/meetings/"+created.ID, meetingBody("room-a", "2024-01-02T17:30:00Z", "2024-01-02T18:30:00Z"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := decodeBody[meetingResponse](t, rec).Meeting.Start; got != "2024-01-02T17:30:00Z" {
			t.Fatalf("unexpected start %s", got)
		}

		if rec := h.do(t, http.MethodDelete, "/meetings/"+created.ID, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec := h.do(t, http.MethodGet, "/meetings/"+created.ID, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", rec.Code)
		}
	})
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "healthy", want: http.StatusOK},
		{name: "store down", err: errors.New("closed"), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := NewRouter(RouterConfig{Health: NewHealthHandler(stubPinger{err: tt.err}, 0, discardLogger()), Logger: discardLogger()})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
