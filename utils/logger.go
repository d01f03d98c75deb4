package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogOptions selects the level and output format of a Logger.
type LogOptions struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// Logger provides leveled, printf-style logging on top of slog.
type Logger struct {
	sl *slog.Logger
}

// NewLogger creates an info-level text Logger writing to stderr.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LogOptions{})
}

// NewLoggerWithOptions creates a Logger from explicit options.
func NewLoggerWithOptions(opts LogOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	return &Logger{sl: slog.New(h)}
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
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

// With returns a child logger tagging every line with the component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{sl: l.sl.With(slog.String("component", component))}
}

func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !l.sl.Enabled(ctx, level) {
		return
	}
	l.sl.Log(ctx, level, fmt.Sprintf(format, args...))
}
