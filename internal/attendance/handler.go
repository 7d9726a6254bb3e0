package attendance

import (
	"context"
	"net/http"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/transport"
)

type ServiceAPI interface {
	ClockIn(ctx context.Context, userID int64, dto ClockDTO) (*Presence, error)
	ClockOut(ctx context.Context, userID int64, dto ClockDTO) (*Presence, error)
	Today(ctx context.Context, userID int64) (*TodayStatus, error)
	History(ctx context.Context, userID int64, filter HistoryFilter) ([]*Presence, int64, error)
	Summary(ctx context.Context, userID int64, period Period) (*Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	var dto ClockDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	presence, err := h.Service.ClockIn(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	message := "Clock in successful"
	if presence.Status == StatusLate {
		message = "Clock in successful, recorded as late"
	}
	h.WriteSuccess(w, http.StatusCreated, message, presence)
}

func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	var dto ClockDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	presence, err := h.Service.ClockOut(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Clock out successful", presence)
}

func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	today, err := h.Service.Today(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Today's presence retrieved", today)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	page, limit := transport.ParsePagination(r)
	filter := HistoryFilter{
		Month: transport.QueryInt(r, "month"),
		Year:  transport.QueryInt(r, "year"),
		Page:  page,
		Limit: limit,
	}

	presences, total, err := h.Service.History(r.Context(), user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WritePaginated(w, "Presence history retrieved", presences, transport.NewPagination(page, limit, total))
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	summary, err := h.Service.Summary(r.Context(), user.ID, Period(r.URL.Query().Get("period")))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Attendance summary retrieved", summary)
}
