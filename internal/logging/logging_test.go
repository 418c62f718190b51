package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestUseJSON(t *testing.T) {
	tests := []struct {
		format string
		ndjson bool
		want   bool
	}{
		{"auto", true, true},
		{"auto", false, false},
		{"", true, true},
		{"json", false, true},
		{"JSON", false, true},
		{"text", true, false},
	}
	for _, tt := range tests {
		if got := UseJSON(tt.format, tt.ndjson); got != tt.want {
			t.Errorf("UseJSON(%q, %v) = %v, want %v", tt.format, tt.ndjson, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true, slog.LevelInfo).Info("loaded session", "events", 13)

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v\noutput: %s", err, buf.String())
	}
	if m["msg"] != "loaded session" {
		t.Errorf("expected msg 'loaded session', got %q", m["msg"])
	}
	if m["events"] != float64(13) {
		t.Errorf("expected events 13, got %v", m["events"])
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false, slog.LevelInfo).Info("skipping malformed line", "line", 7)

	out := buf.String()
	if !strings.Contains(out, `msg="skipping malformed line"`) {
		t.Errorf("expected text output containing msg, got: %s", out)
	}
	if !strings.Contains(out, "line=7") {
		t.Errorf("expected text output containing line=7, got: %s", out)
	}
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, slog.LevelWarn)
	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got: %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn message, got: %s", buf.String())
	}
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(&buf, false, slog.LevelDebug)
	slog.Debug("watching", "path", "session.jsonl")
	if !strings.Contains(buf.String(), "path=session.jsonl") {
		t.Errorf("expected default logger to write to buffer, got: %s", buf.String())
	}
}
