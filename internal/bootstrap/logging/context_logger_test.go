package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestWithAttrsOverridesByKey(t *testing.T) {
	ctx := WithAttrs(context.Background(), slog.String("component", "a"), slog.String("date", "2026-10-15"))
	ctx = WithAttrs(ctx, slog.String("component", "b"))

	attrs := Attrs(ctx)
	if len(attrs) != 2 {
		t.Fatalf("Attrs() len = %d, want 2", len(attrs))
	}
	if attrs[0].Key != "component" || attrs[0].Value.String() != "b" {
		t.Fatalf("Attrs()[0] = %v, want component=b", attrs[0])
	}
}

func TestLoggerFromContextWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	ctx := WithLogger(context.Background(), logger)
	ctx = WithAttrs(ctx, slog.String("kind", "sudoku"))
	Warn(ctx, "puzzle provisioned", slog.String("outcome", "created"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v; raw=%s", err, buf.String())
	}
	if line["msg"] != "puzzle provisioned" || line["kind"] != "sudoku" || line["outcome"] != "created" || line["level"] != "WARN" {
		t.Fatalf("log line = %#v", line)
	}
}

func TestNewLoggerLevelsAndFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	ctx := WithLogger(context.Background(), logger)
	Info(ctx, "hidden")
	Error(ctx, "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("log output = %q", buf.String())
	}

	if _, err := NewLogger(&buf, "loud", "text"); err == nil {
		t.Fatalf("NewLogger() expected error for bad level")
	}
	if _, err := NewLogger(&buf, "info", "xml"); err == nil {
		t.Fatalf("NewLogger() expected error for bad format")
	}
}
