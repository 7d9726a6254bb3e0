package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/attendance-management/pkg/logger"
)

const TraceHeader = "X-Trace-ID"

// TraceID reuses an incoming X-Trace-ID or mints one, echoes it back and scopes the
// request logger with it.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
