package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestContextWithLogger_RoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected stored logger, got %v", got)
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for bare context, got %v", got)
	}
	if got := OrDefault(context.Background(), logger); got != logger {
		t.Fatalf("expected fallback logger")
	}
}

func TestNew_JSONFormatWritesStructuredRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Format: FormatJSON, Level: "debug", Stdout: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	logger.Debug("pass finished", "dispatched", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "pass finished" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
	if record["dispatched"] != float64(3) {
		t.Fatalf("unexpected attribute %v", record["dispatched"])
	}
}

func TestNew_TextFormatRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Format: FormatText, Level: "warn", Stdout: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected warn record in output: %q", out)
	}
}

func TestNew_FileOutputIsCreated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "scheduler.log")
	logger, closer, err := New(Options{File: path, Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
