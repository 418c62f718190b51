package config

import (
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"TIMELINE_SOURCE", "TIMELINE_WATCH", "TIMELINE_FETCH_TIMEOUT", "TIMELINE_FETCH_RETRIES",
	"TIMELINE_TZ", "TIMELINE_QUERY", "TIMELINE_TYPE", "TIMELINE_HIDE",
	"TIMELINE_ADDR", "TIMELINE_MAX_BODY", "TIMELINE_SHUTDOWN_TIMEOUT",
	"TIMELINE_OUTPUT", "TIMELINE_OUTPUT_PATH", "TIMELINE_OUTPUT_PRETTY",
	"TIMELINE_OUTPUT_VERBOSITY", "TIMELINE_OUTPUT_MAX_SIZE",
	"TIMELINE_WEBHOOK_URL", "TIMELINE_WEBHOOK_BUFFER",
	"TIMELINE_LOG_LEVEL", "TIMELINE_LOG_FORMAT",
}

// clearEnv blanks every variable Load reads; getenv treats "" as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Source.Location != "" {
		t.Errorf("expected empty source, got %q", cfg.Source.Location)
	}
	if cfg.Source.FetchTimeout != 30*time.Second {
		t.Errorf("expected 30s fetch timeout, got %v", cfg.Source.FetchTimeout)
	}
	if cfg.Source.FetchRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Source.FetchRetries)
	}
	if cfg.View.TZ != "local" || cfg.View.Type != "all" || cfg.View.HideTool {
		t.Errorf("unexpected view defaults: %+v", cfg.View)
	}
	if cfg.Server.Addr != "127.0.0.1:7078" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Output.Format != FormatText || cfg.Output.Verbosity != "standard" {
		t.Errorf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMELINE_SOURCE", "https://example.com/s.jsonl")
	t.Setenv("TIMELINE_WATCH", "true")
	t.Setenv("TIMELINE_FETCH_TIMEOUT", "5s")
	t.Setenv("TIMELINE_FETCH_RETRIES", "0")
	t.Setenv("TIMELINE_TZ", "utc")
	t.Setenv("TIMELINE_QUERY", "bash")
	t.Setenv("TIMELINE_TYPE", "user.message")
	t.Setenv("TIMELINE_HIDE", "1")
	t.Setenv("TIMELINE_OUTPUT", "file")
	t.Setenv("TIMELINE_OUTPUT_PATH", "/tmp/out.ndjson")
	t.Setenv("TIMELINE_OUTPUT_MAX_SIZE", "1048576")
	t.Setenv("TIMELINE_WEBHOOK_URL", "http://localhost:9000/hook")

	cfg := Load()
	if cfg.Source.Location != "https://example.com/s.jsonl" || !cfg.Source.Watch {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if cfg.Source.FetchTimeout != 5*time.Second || cfg.Source.FetchRetries != 0 {
		t.Errorf("unexpected fetch settings: %+v", cfg.Source)
	}
	want := ViewConfig{TZ: "utc", Query: "bash", Type: "user.message", HideTool: true}
	if cfg.View != want {
		t.Errorf("view = %+v, want %+v", cfg.View, want)
	}
	if cfg.Output.Format != FormatFile || cfg.Output.Path != "/tmp/out.ndjson" || cfg.Output.MaxSize != 1<<20 {
		t.Errorf("unexpected output: %+v", cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad tz", func(c *Config) { c.View.TZ = "pst" }, "tz"},
		{"bad output", func(c *Config) { c.Output.Format = "xml" }, "output"},
		{"file without path", func(c *Config) { c.Output.Format = FormatFile }, "TIMELINE_OUTPUT_PATH"},
		{"bad verbosity", func(c *Config) { c.Output.Verbosity = "full" }, "verbosity"},
		{"negative retries", func(c *Config) { c.Source.FetchRetries = -1 }, "retries"},
		{"zero timeout", func(c *Config) { c.Source.FetchTimeout = 0 }, "timeout"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "TIMELINE_ADDR"},
		{"bad webhook", func(c *Config) { c.Output.WebhookURL = "ftp://x" }, "webhook"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"negative max size", func(c *Config) { c.Output.MaxSize = -1 }, "max size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	cfg.View.TZ = "mars"
	cfg.Output.Format = "xml"
	cfg.Output.Verbosity = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple bad fields")
	}
	for _, want := range []string{"tz", "output", "verbosity"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		fallback int
		want     int
	}{
		{"empty uses fallback", "", 3, 3},
		{"valid int", "5", 3, 5},
		{"zero", "0", 3, 0},
		{"invalid falls back", "abc", 3, 3},
		{"negative", "-1", 3, -1},
	}

	const key = "TIMELINE_TEST_GETENVINT"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getenvInt(key, tt.fallback); got != tt.want {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.envVal, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestGetenvBool(t *testing.T) {
	tests := []struct {
		val      string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"true", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"no", true, false},
		{"maybe", true, true},
	}
	const key = "TIMELINE_TEST_GETENVBOOL"
	for _, tt := range tests {
		t.Setenv(key, tt.val)
		if got := getenvBool(key, tt.fallback); got != tt.want {
			t.Errorf("getenvBool(%q, %v) = %v, want %v", tt.val, tt.fallback, got, tt.want)
		}
	}
}

func TestGetenvDuration(t *testing.T) {
	const key = "TIMELINE_TEST_GETENVDURATION"
	t.Setenv(key, "250ms")
	if got := getenvDuration(key, time.Second); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	t.Setenv(key, "soon")
	if got := getenvDuration(key, time.Second); got != time.Second {
		t.Errorf("expected fallback, got %v", got)
	}
}

func TestVersion_IsSet(t *testing.T) {
	if Version == "" {
		t.Fatal("expected non-empty Version constant")
	}
}
