// Package logger provides a structured, slog-backed logger shared across the
// monolith and its bounded contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// fanoutHandler duplicates every record to a primary and an extra handler,
// so a log line reaches both the local sink and an OTEL exporter.
type fanoutHandler struct {
	primary slog.Handler
	extra   slog.Handler
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.primary.Enabled(ctx, level) || f.extra.Enabled(ctx, level)
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := f.primary.Handle(ctx, record.Clone()); err != nil {
		return err
	}
	return f.extra.Handle(ctx, record.Clone())
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{primary: f.primary.WithAttrs(attrs), extra: f.extra.WithAttrs(attrs)}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{primary: f.primary.WithGroup(name), extra: f.extra.WithGroup(name)}
}

// LoggerInterface is the contract every module depends on, so call sites
// never reach for slog directly and swapping the backend stays local to
// this package.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kvPairs ...any)
	Info(ctx context.Context, msg string, kvPairs ...any)
	Warn(ctx context.Context, msg string, kvPairs ...any)
	Error(ctx context.Context, msg string, kvPairs ...any)
	With(kvPairs ...any) LoggerInterface
}

// Level selects the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is the slog-backed LoggerInterface implementation.
type Logger struct {
	slog *slog.Logger
}

// New constructs a Logger that writes JSON lines to w at the given minimum
// level, tagged with a "component" attribute set to name. If extraHandler
// is non-nil (an OTEL log-export handler, typically), records fan out to it
// as well as to w.
func New(w io.Writer, level Level, name string, extraHandler slog.Handler) *Logger {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	if extraHandler != nil {
		handler = fanoutHandler{primary: handler, extra: extraHandler}
	}
	base := slog.New(handler)
	if name != "" {
		base = base.With("component", name)
	}
	return &Logger{slog: base}
}

func (l *Logger) Debug(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.DebugContext(ctx, msg, kvPairs...)
}

func (l *Logger) Info(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.InfoContext(ctx, msg, kvPairs...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.WarnContext(ctx, msg, kvPairs...)
}

func (l *Logger) Error(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.ErrorContext(ctx, msg, kvPairs...)
}

// With returns a Logger that prepends kvPairs to every subsequent call.
func (l *Logger) With(kvPairs ...any) LoggerInterface {
	return &Logger{slog: l.slog.With(kvPairs...)}
}
