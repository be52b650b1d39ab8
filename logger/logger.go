// Package logger writes one JSON object per line with a fixed envelope:
// timestamp, level, service, action, message, request_id and caller fields.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

type Logger struct {
	service string
	l       *slog.Logger
}

// New logs to stdout at the given level ("debug", "info", "warn", "error").
func New(service, level string) *Logger {
	return NewWithWriter(service, os.Stdout, ParseLevel(level))
}

func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return &Logger{service: service, l: slog.New(h).With("service", service)}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard, slog.LevelError+1)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID returns a context whose log lines carry rid.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

func requestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func (lg *Logger) log(ctx context.Context, level slog.Level, action, msg string, fields []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	args := make([]any, 0, len(fields)+4)
	args = append(args, "action", action)
	if rid := requestIDFrom(ctx); rid != "" {
		args = append(args, "request_id", rid)
	}
	args = append(args, fields...)
	lg.l.Log(ctx, level, msg, args...)
}

// Debug, Info and Warn take fields as alternating key/value pairs.
func (lg *Logger) Debug(ctx context.Context, action, msg string, fields ...any) {
	lg.log(ctx, slog.LevelDebug, action, msg, fields)
}

func (lg *Logger) Info(ctx context.Context, action, msg string, fields ...any) {
	lg.log(ctx, slog.LevelInfo, action, msg, fields)
}

func (lg *Logger) Warn(ctx context.Context, action, msg string, fields ...any) {
	lg.log(ctx, slog.LevelWarn, action, msg, fields)
}

func (lg *Logger) Error(ctx context.Context, action, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, slog.Group("error", slog.String("msg", err.Error())))
	}
	lg.log(ctx, slog.LevelError, action, msg, fields)
}
