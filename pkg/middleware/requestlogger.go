package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/MallGo/pkg/logger"
)

// SessionHeader identifies the shopper's session.
const SessionHeader = "X-Session-ID"

// RequestLogger stores a logger enriched with correlation_id, session_id,
// trace_id and span_id in the request context, for retrieval with
// logger.FromContext. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logger.SessionIDFromContext(ctx) == "" {
				if id := r.Header.Get(SessionHeader); id != "" {
					ctx = logger.WithSessionID(ctx, id)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
