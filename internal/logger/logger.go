// Package logger provides structured logging using log/slog.
// It sets up a JSON handler with service-level context, an optional rotating
// log file, a runtime-adjustable level, and trace ID propagation through
// context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Options configures Init.
type Options struct {
	Level slog.Level
	// Output defaults to os.Stdout.
	Output io.Writer
	// File, when set, receives a copy of every record with size-based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// level is shared by every handler created through Init so that SetLevel
// takes effect process-wide.
var level = new(slog.LevelVar)

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout (and opts.File) with the service name embedded.
func Init(service string, opts Options) *slog.Logger {
	level.Set(opts.Level)

	var w io.Writer = os.Stdout
	if opts.Output != nil {
		w = opts.Output
	}
	if opts.File != "" {
		w = io.MultiWriter(w, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		})
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// SetLevel changes the level of every logger created by Init.
func SetLevel(l slog.Level) { level.Set(l) }

// Level returns the current process-wide level.
func Level() slog.Level { return level.Level() }

// ParseLevel maps "debug", "info", "warn", "error" to a slog.Level.
// Unknown strings map to info.
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

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID creates a sortable trace ID: "{symbol}-{ulid}".
func GenerateTraceID(symbol string, ts time.Time) string {
	return symbol + "-" + ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String()
}

// LogWithTrace returns slog attributes including the trace ID from context.
// Usage: slog.Info("msg", logger.LogWithTrace(ctx)...)
func LogWithTrace(ctx context.Context) []any {
	tid := TraceID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("trace_id", tid)}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
