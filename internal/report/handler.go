package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	"github.com/frahmantamala/attendance-management/internal/transport"
)

type ServiceAPI interface {
	Stats(ctx context.Context, month, year int) (*Stats, error)
	Presences(ctx context.Context, filter PresenceFilter) ([]*PresenceRow, int64, error)
	Monthly(ctx context.Context, month, year int) (*MonthlyReport, error)
	WriteMonthlyPDF(ctx context.Context, month, year int, w io.Writer) error
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

// Stats handles GET /admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), transport.QueryInt(r, "month"), transport.QueryInt(r, "year"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Attendance statistics retrieved", stats)
}

// Presences handles GET /admin/presences
func (h *Handler) Presences(w http.ResponseWriter, r *http.Request) {
	page, limit := transport.ParsePagination(r)
	filter := PresenceFilter{
		Status: attendance.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
		Page:   page,
		Limit:  limit,
	}
	if v := r.URL.Query().Get("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("userId", "invalid userId", internal.ErrCodeValidationFailed))
			return
		}
		filter.UserID = id
	}

	rows, total, err := h.Service.Presences(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WritePaginated(w, "Presences retrieved", map[string]interface{}{"presences": rows}, transport.NewPagination(page, limit, total))
}

// Monthly handles GET /admin/reports/monthly
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Monthly(r.Context(), transport.QueryInt(r, "month"), transport.QueryInt(r, "year"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Monthly report retrieved", report)
}

// MonthlyPDF handles GET /admin/reports/monthly.pdf. The document is buffered so an error can
// still be answered as JSON.
func (h *Handler) MonthlyPDF(w http.ResponseWriter, r *http.Request) {
	month, year := transport.QueryInt(r, "month"), transport.QueryInt(r, "year")

	var buf bytes.Buffer
	if err := h.Service.WriteMonthlyPDF(r.Context(), month, year, &buf); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	name := "attendance-report.pdf"
	if month > 0 && year > 0 {
		name = fmt.Sprintf("attendance-%04d-%02d.pdf", year, month)
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("failed to write monthly report", "error", err)
	}
}
