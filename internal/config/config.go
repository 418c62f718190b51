package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/timeline/internal/output"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

// Version is the release version of the timeline binary.
const Version = "0.4.0"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatFile = "file"
)

// Config holds all timeline configuration.
type Config struct {
	Source SourceConfig
	View   ViewConfig
	Server ServerConfig
	Output OutputConfig
	Log    LogConfig
}

// SourceConfig selects and fetches the session log.
type SourceConfig struct {
	Location     string // path, "-" for stdin, or http(s) URL
	Watch        bool
	FetchTimeout time.Duration
	FetchRetries int
}

// ViewConfig holds the initial filters and timezone mode.
type ViewConfig struct {
	TZ       string
	Query    string
	Type     string
	HideTool bool
}

// ServerConfig holds HTTP viewer settings.
type ServerConfig struct {
	Addr            string
	MaxBody         int64
	ShutdownTimeout time.Duration
}

// OutputConfig holds output destination settings for print and watch.
type OutputConfig struct {
	Format     string // "text", "json" or "file"
	Path       string
	Pretty     bool
	Verbosity  string // "minimal" or "standard"
	MaxSize    int64  // file rotation threshold in bytes, 0 disables
	WebhookURL string
	WebhookBuf int
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level  string
	Format string // "auto", "text" or "json"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Source: SourceConfig{
			Location:     os.Getenv("TIMELINE_SOURCE"),
			Watch:        getenvBool("TIMELINE_WATCH", false),
			FetchTimeout: getenvDuration("TIMELINE_FETCH_TIMEOUT", 30*time.Second),
			FetchRetries: getenvInt("TIMELINE_FETCH_RETRIES", 3),
		},
		View: ViewConfig{
			TZ:       getenv("TIMELINE_TZ", string(timefmt.Local)),
			Query:    os.Getenv("TIMELINE_QUERY"),
			Type:     getenv("TIMELINE_TYPE", "all"),
			HideTool: getenvBool("TIMELINE_HIDE", false),
		},
		Server: ServerConfig{
			Addr:            getenv("TIMELINE_ADDR", "127.0.0.1:7078"),
			MaxBody:         getenvInt64("TIMELINE_MAX_BODY", 64<<20),
			ShutdownTimeout: getenvDuration("TIMELINE_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Output: OutputConfig{
			Format:     getenv("TIMELINE_OUTPUT", FormatText),
			Path:       os.Getenv("TIMELINE_OUTPUT_PATH"),
			Pretty:     getenvBool("TIMELINE_OUTPUT_PRETTY", false),
			Verbosity:  getenv("TIMELINE_OUTPUT_VERBOSITY", "standard"),
			MaxSize:    getenvInt64("TIMELINE_OUTPUT_MAX_SIZE", 0),
			WebhookURL: os.Getenv("TIMELINE_WEBHOOK_URL"),
			WebhookBuf: getenvInt("TIMELINE_WEBHOOK_BUFFER", 1024),
		},
		Log: LogConfig{
			Level:  getenv("TIMELINE_LOG_LEVEL", "info"),
			Format: getenv("TIMELINE_LOG_FORMAT", "auto"),
		},
	}
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if _, ok := timefmt.ParseMode(c.View.TZ); !ok {
		errs = append(errs, fmt.Errorf("invalid tz %q (must be local or utc)", c.View.TZ))
	}
	if c.Source.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be positive, got %v", c.Source.FetchTimeout))
	}
	if c.Source.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch retries must be non-negative, got %d", c.Source.FetchRetries))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("TIMELINE_ADDR must not be empty"))
	}
	if c.Server.MaxBody <= 0 {
		errs = append(errs, fmt.Errorf("max body must be positive, got %d", c.Server.MaxBody))
	}

	switch c.Output.Format {
	case FormatText, FormatJSON:
	case FormatFile:
		if c.Output.Path == "" {
			errs = append(errs, errors.New("TIMELINE_OUTPUT_PATH is required when output is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid output %q (must be text, json or file)", c.Output.Format))
	}
	if _, err := output.ParseVerbosity(c.Output.Verbosity); err != nil {
		errs = append(errs, fmt.Errorf("invalid verbosity %q (must be minimal or standard)", c.Output.Verbosity))
	}
	if c.Output.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("output max size must be non-negative, got %d", c.Output.MaxSize))
	}
	if c.Output.WebhookURL != "" {
		u, err := url.Parse(c.Output.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid webhook url %q", c.Output.WebhookURL))
		}
		if c.Output.WebhookBuf <= 0 {
			errs = append(errs, fmt.Errorf("webhook buffer must be positive, got %d", c.Output.WebhookBuf))
		}
	}

	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (must be auto, text or json)", c.Log.Format))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
