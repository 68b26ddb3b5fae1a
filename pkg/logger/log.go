package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	requestIDKey = "request_id"
	envLogLevel  = "LOG_LEVEL"
)

var (
	defaultLogger *slog.Logger
)

func init() {
	defaultLogger = New(os.Stdout, ParseLevel(os.Getenv(envLogLevel)))
}

// New builds a JSON logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}))
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
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

// InitFromEnv rebuilds the default logger from LOG_LEVEL. Call it after
// loading .env so a level set only there takes effect.
func InitFromEnv() {
	SetDefault(New(os.Stdout, ParseLevel(os.Getenv(envLogLevel))))
}

// SetDefault replaces the process-wide logger used when a context carries none.
func SetDefault(l *slog.Logger) {
	if l != nil {
		defaultLogger = l
	}
}

type contextKey struct{}

var loggerKey = &contextKey{}

// FromContext returns the logger from context, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return defaultLogger
	}
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

// WithContext returns a new context that carries the given logger.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithRequestID returns a new context whose logger includes the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	l := FromContext(ctx).With(requestIDKey, id)
	return WithContext(ctx, l)
}

// Error logs with error level. args are alternating key-value pairs (e.g. "error", err).
func Error(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).ErrorContext(orBackground(ctx), message, args...)
}

// Info logs with info level. args are alternating key-value pairs.
func Info(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).InfoContext(orBackground(ctx), message, args...)
}

// Debug logs with debug level. args are alternating key-value pairs.
func Debug(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).DebugContext(orBackground(ctx), message, args...)
}

// Warn logs with warn level. args are alternating key-value pairs.
func Warn(ctx context.Context, message string, args ...interface{}) {
	FromContext(ctx).WarnContext(orBackground(ctx), message, args...)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
