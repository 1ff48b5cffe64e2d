package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/scheduler"
)

type roomService interface {
	RegisterRoom(ctx context.Context, input application.RoomInput) (application.Room, error)
	GetRoom(ctx context.Context, id, date string) (application.Room, error)
	ListRooms(ctx context.Context) ([]application.Room, error)
	RoomAvailability(ctx context.Context, roomID, date string) (application.Availability, error)
	AvailabilityByDate(ctx context.Context, date string) ([]application.Availability, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	room, err := h.service.RegisterRoom(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := strings.TrimSpace(chi.URLParam(r, "roomID"))
	if roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID, r.URL.Query().Get("date"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List").With("result_count", len(rooms)).DebugContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := strings.TrimSpace(chi.URLParam(r, "roomID"))
	availability, err := h.service.RoomAvailability(r.Context(), roomID, r.URL.Query().Get("date"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(availability))
}

func (h *RoomHandler) AvailabilityByDate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date := chi.URLParam(r, "date")
	availability, err := h.service.AvailabilityByDate(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]availabilityDTO, len(availability))
	for i, a := range availability {
		out[i] = toAvailabilityDTO(a)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityByDateResponse{Date: date, Rooms: out})
}

type roomRequest struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Features []string `json:"features"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		ID:       strings.TrimSpace(r.ID),
		Name:     strings.TrimSpace(r.Name),
		Capacity: r.Capacity,
		Features: r.Features,
	}
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Capacity     int                  `json:"capacity"`
	Features     []string             `json:"features"`
	MeetingIDs   []string             `json:"meeting_ids"`
	Availability *roomAvailabilityDTO `json:"availability,omitempty"`
	CreatedAt    string               `json:"created_at"`
	UpdatedAt    string               `json:"updated_at"`
}

type roomAvailabilityDTO struct {
	Date                   string  `json:"date"`
	AvailableMinutes       int     `json:"available_minutes"`
	AvailabilityPercentage float64 `json:"availability_percentage"`
	ComputedAt             string  `json:"computed_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	dto := roomDTO{
		ID:         room.ID,
		Name:       room.Name,
		Capacity:   room.Capacity,
		Features:   nonNil(room.Features),
		MeetingIDs: nonNil(room.MeetingIDs),
		CreatedAt:  formatTime(room.CreatedAt),
		UpdatedAt:  formatTime(room.UpdatedAt),
	}
	if a := room.Availability; a != nil {
		dto.Availability = &roomAvailabilityDTO{
			Date:                   a.Date,
			AvailableMinutes:       a.AvailableMinutes,
			AvailabilityPercentage: a.AvailabilityPercentage,
			ComputedAt:             formatTime(a.ComputedAt),
		}
	}
	return dto
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

type availabilityDTO struct {
	RoomID                 string    `json:"room_id"`
	Date                   string    `json:"date"`
	OccupiedMinutes        int       `json:"occupied_minutes"`
	AvailableMinutes       int       `json:"available_minutes"`
	AvailabilityPercentage float64   `json:"availability_percentage"`
	FreeSlots              []slotDTO `json:"free_slots"`
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type availabilityByDateResponse struct {
	Date  string            `json:"date"`
	Rooms []availabilityDTO `json:"rooms"`
}

func toAvailabilityDTO(a application.Availability) availabilityDTO {
	return availabilityDTO{
		RoomID:                 a.RoomID,
		Date:                   a.Date,
		OccupiedMinutes:        a.OccupiedMinutes,
		AvailableMinutes:       a.AvailableMinutes,
		AvailabilityPercentage: a.AvailabilityPercentage,
		FreeSlots:              toSlotDTOs(a.FreeSlots),
	}
}

func toSlotDTOs(slots []scheduler.TimeRange) []slotDTO {
	out := make([]slotDTO, len(slots))
	for i, s := range slots {
		out[i] = slotDTO{Start: formatTime(s.Start), End: formatTime(s.End)}
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
