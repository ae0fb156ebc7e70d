package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"docsync/internal/services"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("change forwarded",
		String(FieldComponent, "debounce"),
		String(FieldPath, "/src/a.go"),
		Int("pending", 3),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Errorf("missing level label: %q", line)
	}
	if !strings.Contains(line, "debounce: change forwarded") {
		t.Errorf("component prefix missing: %q", line)
	}
	if !strings.Contains(line, "path=/src/a.go") {
		t.Errorf("path attr missing: %q", line)
	}
	if !strings.Contains(line, "pending=3") {
		t.Errorf("int attr missing: %q", line)
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info log emitted below level: %q", buf.String())
	}

	logger.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("warn log missing: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithPath(context.Background(), "/src/main.ts")
	ctx = services.WithStage(ctx, "analyze")

	WithContext(ctx, logger).Info("started")

	line := buf.String()
	if !strings.Contains(line, "path=/src/main.ts") {
		t.Errorf("context path missing: %q", line)
	}
	if !strings.Contains(line, "stage=analyze") {
		t.Errorf("context stage missing: %q", line)
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	if got := quoteIfNeeded("plain"); got != "plain" {
		t.Errorf("plain value quoted: %q", got)
	}
	if got := quoteIfNeeded("two words"); got != `"two words"` {
		t.Errorf("spaced value not quoted: %q", got)
	}
	if got := quoteIfNeeded(""); got != `""` {
		t.Errorf("empty value: %q", got)
	}
}
