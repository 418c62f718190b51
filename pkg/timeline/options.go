package timeline

import "time"

type options struct {
	tz           string
	query        string
	eventType    string
	hideTool     bool
	fetchTimeout time.Duration
	fetchRetries int
}

// Option configures a Viewer.
type Option func(*options)

// WithTZ sets the timezone mode, "local" or "utc". Default: "local".
func WithTZ(mode string) Option {
	return func(o *options) { o.tz = mode }
}

// WithQuery sets a case-insensitive search over each event's JSON.
func WithQuery(q string) Option {
	return func(o *options) { o.query = q }
}

// WithType keeps only events of the given type. "all" keeps every type.
func WithType(t string) Option {
	return func(o *options) { o.eventType = t }
}

// WithHideToolDetails hides turn boundaries and truncation notices.
func WithHideToolDetails(hide bool) Option {
	return func(o *options) { o.hideTool = hide }
}

// WithFetch tunes fetching of http(s) locations passed to Open.
// Defaults: 30s timeout, 3 retries.
func WithFetch(timeout time.Duration, retries int) Option {
	return func(o *options) {
		o.fetchTimeout = timeout
		o.fetchRetries = retries
	}
}

func defaultOptions() options {
	return options{
		tz:           "local",
		eventType:    "all",
		fetchTimeout: 30 * time.Second,
		fetchRetries: 3,
	}
}
