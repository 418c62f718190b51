// Package webhook posts timeline entries to an HTTP endpoint in batches.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/source/httpclient"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
)

// Batch is the JSON body of one POST.
type Batch struct {
	Seq     uint64        `json:"seq"` // 1 for the first POST of an Output
	Source  string        `json:"source,omitempty"`
	Entries []model.Entry `json:"entries"`
}

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) {
		for k, v := range h {
			o.header.Set(k, v)
		}
	}
}

// WithBatchSize sets the number of entries accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time an entry waits before a flush. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithClient sets the HTTP client, and with it the timeout and retry policy.
// Default: 10s timeout, 3 retries on 429/5xx.
func WithClient(c *httpclient.Client) Option {
	return func(o *Output) { o.client = c }
}

// WithSource labels every batch with the session it was rendered from.
func WithSource(name string) Option {
	return func(o *Output) { o.source = name }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output POSTs batches of timeline entries. A batch is sent when it reaches
// batchSize entries, when flushInterval has passed since its first entry,
// or on Close.
type Output struct {
	client        *httpclient.Client
	url           string
	header        http.Header
	source        string
	batchSize     int
	flushInterval time.Duration
	errFunc       func(error)

	mu      sync.Mutex
	pending []model.Entry
	timer   *time.Timer
	seq     uint64
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:        httpclient.New(httpclient.WithTimeout(defaultTimeout)),
		url:           url,
		header:        http.Header{},
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		errFunc:       func(err error) { slog.Warn("webhook flush failed", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) Write(ctx context.Context, entry model.Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, entry)
	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}
	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, o.flushOnTimer)
	}
	return nil
}

func (o *Output) flushOnTimer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.flushLocked(context.Background()); err != nil {
		o.errFunc(err)
	}
}

// Close sends any pending entries.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flushLocked(context.Background())
}

// flushLocked posts the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) == 0 {
		return nil
	}

	o.seq++
	batch := Batch{Seq: o.seq, Source: o.source, Entries: o.pending}
	o.pending = nil

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	if err := o.client.PostJSON(ctx, o.url, body, o.header); err != nil {
		return fmt.Errorf("webhook: batch %d: %w", batch.Seq, err)
	}
	return nil
}
