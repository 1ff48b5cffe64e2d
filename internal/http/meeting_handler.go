package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/scheduler"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, input application.MeetingInput) (application.Meeting, error)
	UpdateMeeting(ctx context.Context, id string, input application.MeetingInput) (application.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	GetMeeting(ctx context.Context, id string) (application.Meeting, error)
	ListMeetings(ctx context.Context, query application.MeetingQuery) ([]application.Meeting, error)
}

type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	input, ok := h.decode(w, r, "Create")
	if !ok {
		return
	}

	meeting, err := h.service.CreateMeeting(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "meeting_id", meeting.ID).InfoContext(r.Context(), "meeting booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "meetingID"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}
	input, ok := h.decode(w, r, "Update")
	if !ok {
		return
	}

	meeting, err := h.service.UpdateMeeting(r.Context(), id, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Update", "meeting_id", id).InfoContext(r.Context(), "meeting updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "meetingID"))
	if err := h.service.DeleteMeeting(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "meeting_id", id).InfoContext(r.Context(), "meeting cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), strings.TrimSpace(chi.URLParam(r, "meetingID")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	from, fromErr := parseTime("from", query.Get("from"))
	to, toErr := parseTime("to", query.Get("to"))
	if err := errors.Join(fromErr, toErr); err != nil {
		h.responder.handleServiceError(r.Context(), w, mergeValidation(fromErr, toErr))
		return
	}

	meetings, err := h.service.ListMeetings(r.Context(), application.MeetingQuery{
		RoomID: query.Get("room_id"),
		From:   from,
		To:     to,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]meetingDTO, len(meetings))
	for i, m := range meetings {
		out[i] = toMeetingDTO(m)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: out})
}

// decode reads a meeting request. Unparseable instants become a validation
// error naming the field.
func (h *MeetingHandler) decode(w http.ResponseWriter, r *http.Request, operation string) (application.MeetingInput, bool) {
	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return application.MeetingInput{}, false
	}

	start, startErr := parseTime("start", req.Start)
	end, endErr := parseTime("end", req.End)
	if startErr != nil || endErr != nil {
		h.responder.handleServiceError(r.Context(), w, mergeValidation(startErr, endErr))
		return application.MeetingInput{}, false
	}

	participants := make([]application.Participant, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = application.Participant(p)
	}
	return application.MeetingInput{
		Title:        req.Title,
		RoomID:       req.RoomID,
		Organizer:    application.Participant(req.Organizer),
		Participants: participants,
		Start:        start,
		End:          end,
	}, true
}

func mergeValidation(errs ...error) error {
	merged := &application.ValidationError{FieldErrors: map[string]string{}}
	for _, err := range errs {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			for field, msg := range vErr.FieldErrors {
				merged.FieldErrors[field] = msg
			}
		}
	}
	return merged
}

type participantDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type meetingRequest struct {
	Title        string           `json:"title"`
	RoomID       string           `json:"room_id"`
	Organizer    participantDTO   `json:"organizer"`
	Participants []participantDTO `json:"participants"`
	Start        string           `json:"start"`
	End          string           `json:"end"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type meetingDTO struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	RoomID        string           `json:"room_id"`
	Organizer     participantDTO   `json:"organizer"`
	Participants  []participantDTO `json:"participants"`
	Start         string           `json:"start"`
	End           string           `json:"end"`
	Status        string           `json:"status"`
	RemindersSent []string         `json:"reminders_sent"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

func toMeetingDTO(m application.Meeting) meetingDTO {
	participants := make([]participantDTO, len(m.Participants))
	for i, p := range m.Participants {
		participants[i] = participantDTO(p)
	}

	minutes := make([]int, 0, len(m.Reminders))
	for lead := range m.Reminders {
		minutes = append(minutes, lead)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(minutes)))
	sent := make([]string, len(minutes))
	for i, lead := range minutes {
		sent[i] = scheduler.LeadTime(time.Duration(lead) * time.Minute).Key()
	}

	return meetingDTO{
		ID:            m.ID,
		Title:         m.Title,
		RoomID:        m.RoomID,
		Organizer:     participantDTO(m.Organizer),
		Participants:  participants,
		Start:         formatTime(m.Start),
		End:           formatTime(m.End),
		Status:        string(m.Status),
		RemindersSent: sent,
		CreatedAt:     formatTime(m.CreatedAt),
		UpdatedAt:     formatTime(m.UpdatedAt),
	}
}
