package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type loggerKey struct{}

type requestKey struct{}

// request holds the identifiers attached to every log line of a request.
type request struct {
	correlationID string
	sessionID     string
}

// New creates a JSON logger for the named service writing to stdout.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Debug logging adds
// source locations.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}
	return slog.New(slog.NewJSONHandler(w, opts)).With(slog.String("service", serviceName))
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel maps a textual level to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

func requestFrom(ctx context.Context) request {
	rq, _ := ctx.Value(requestKey{}).(request)
	return rq
}

// WithCorrelationID returns a context carrying the request's correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	rq := requestFrom(ctx)
	rq.correlationID = id
	return context.WithValue(ctx, requestKey{}, rq)
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return requestFrom(ctx).correlationID
}

// WithSessionID returns a context carrying the shopper's session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	rq := requestFrom(ctx)
	rq.sessionID = id
	return context.WithValue(ctx, requestKey{}, rq)
}

// SessionIDFromContext returns the session ID, or "".
func SessionIDFromContext(ctx context.Context) string {
	return requestFrom(ctx).sessionID
}

// NewContext returns a context holding l.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request-scoped logger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// Attrs returns the correlation, session and trace identifiers found in ctx.
func Attrs(ctx context.Context) []any {
	var attrs []any
	rq := requestFrom(ctx)
	if rq.correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", rq.correlationID))
	}
	if rq.sessionID != "" {
		attrs = append(attrs, slog.String("session_id", rq.sessionID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

// WithContext returns l enriched with Attrs(ctx).
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
