package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Every log line carries the service name so aggregated streams stay
// attributable.
const serviceName = "leadrouter"

// Logger is the structured logging surface shared by all services.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
	With(args ...any) Logger
}

type slogAdapter struct {
	l *slog.Logger
}

// New builds the process logger: JSON to stdout at the given level.
func New(level string) Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New with an explicit sink, so tests can capture output.
func NewWithWriter(w io.Writer, level string) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &slogAdapter{l: slog.New(handler).With("service", serviceName)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }

func (a *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{l: a.l.With(args...)}
}

// Component scopes a logger to one subsystem, tagging every line it emits.
func Component(l Logger, name string) Logger {
	return l.With("component", name)
}

// Default returns an info-level logger for tests and tools.
func Default() Logger {
	return New("info")
}
