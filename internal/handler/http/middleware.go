package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/MallGo/pkg/errors"
	"github.com/utafrali/MallGo/pkg/httputil"
	"github.com/utafrali/MallGo/pkg/logger"
	"github.com/utafrali/MallGo/pkg/middleware"
)

const maxSessionIDLen = 128

// SessionFromHeader reads the shopper's session from X-Session-ID, issuing a
// new UUID when the header is absent. The session is echoed in the response
// header and stored in the request context.
func SessionFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
		if len(id) > maxSessionIDLen {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: apperrors.CodeInvalidInput, Message: "session id is too long"},
			})
			return
		}
		if id == "" {
			id = uuid.NewString()
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("session_id", id)))
		}

		w.Header().Set(middleware.SessionHeader, id)
		ctx = logger.WithSessionID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the session stored by SessionFromHeader.
func sessionID(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}

// ContentTypeJSON rejects request bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: apperrors.CodeUnsupportedMedia, Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
