package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", Options{Level: slog.LevelInfo})
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInit_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.log")
	logger := Init("file-service", Options{Level: slog.LevelInfo, File: path})
	logger.Info("hello file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello file"`) || !strings.Contains(string(data), `"service":"file-service"`) {
		t.Errorf("unexpected log file content: %s", data)
	}
}

func TestInit_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := Init("cli", Options{Level: slog.LevelWarn, Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, `"msg":"kept"`) {
		t.Errorf("output = %s", out)
	}
}

func TestSetLevel(t *testing.T) {
	Init("lvl", Options{Level: slog.LevelInfo})
	SetLevel(slog.LevelDebug)
	if Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", Level())
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default logger should follow SetLevel")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No trace ID set
	if tid := TraceID(ctx); tid != "" {
		t.Errorf("expected empty trace id, got %q", tid)
	}

	ctx = WithTraceID(ctx, "test-trace-123")
	if tid := TraceID(ctx); tid != "test-trace-123" {
		t.Errorf("expected 'test-trace-123', got %q", tid)
	}
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	a := GenerateTraceID("BTCUSDT", ts)
	b := GenerateTraceID("BTCUSDT", ts.Add(time.Second))

	if !strings.HasPrefix(a, "BTCUSDT-") {
		t.Errorf("expected trace id to start with 'BTCUSDT-', got %s", a)
	}
	if len(a) != len("BTCUSDT-")+26 {
		t.Errorf("expected a 26-char ULID suffix, got %s", a)
	}
	if a >= b {
		t.Errorf("trace ids must sort by time: %s >= %s", a, b)
	}
}

func TestLogWithTrace(t *testing.T) {
	ctx := context.Background()

	if attrs := LogWithTrace(ctx); attrs != nil {
		t.Errorf("expected nil attrs when no trace id, got %v", attrs)
	}

	ctx = WithTraceID(ctx, "abc-123")
	if attrs := LogWithTrace(ctx); len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with trace id set")
	}
}
