package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, userID int64, filter ListFilter) (*ListResponse, int64, error)
	Stats(ctx context.Context, userID int64) (*Stats, error)
	MarkAsRead(ctx context.Context, userID, id int64) (*Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
	ClearRead(ctx context.Context, userID int64) (int64, error)
	Broadcast(ctx context.Context, dto BroadcastDTO) (*BroadcastResult, error)
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	page, limit := transport.ParsePagination(r)
	filter := ListFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Type:       Type(r.URL.Query().Get("type")),
		Page:       page,
		Limit:      limit,
	}

	list, total, err := h.Service.List(r.Context(), user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WritePaginated(w, "Notifications retrieved", list, transport.NewPagination(page, limit, total))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	stats, err := h.Service.Stats(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Notification stats retrieved", stats)
}

func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}
	id, err := transport.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	n, err := h.Service.MarkAsRead(r.Context(), user.ID, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Notification marked as read", n)
}

func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	n, err := h.Service.MarkAllAsRead(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d notifications marked as read", n), nil)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}
	id, err := transport.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), user.ID, id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Notification deleted", nil)
}

func (h *Handler) ClearRead(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	n, err := h.Service.ClearRead(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d read notifications deleted", n), nil)
}

func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var dto BroadcastDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.Broadcast(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, fmt.Sprintf("Notification sent to %d users", result.RecipientCount), result)
}
