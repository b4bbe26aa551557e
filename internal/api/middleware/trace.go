package middleware

import (
	"log/slog"
	"net/http"

	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/platform/logger"
)

// TraceIDHeader carries the request's trace ID back to the caller so a
// scanner device or dispatcher UI can quote it when reporting a problem.
const TraceIDHeader = "X-Trace-Id"

// TraceMiddleware generates a trace ID for the request, stores it in the
// context together with a trace-scoped logger, and echoes it in the
// response. It runs before authentication so even rejected requests are
// correlatable.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)

		log := slog.With(slog.String("trace_id", traceID))
		ctx = logger.WithLogger(ctx, log)

		w.Header().Set(TraceIDHeader, traceID)

		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
