package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const maxErrorBody = 512

// Client fetches and posts documents over HTTP with retry logic.
type Client struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first maxErrorBody bytes
	retryAfter string // internal: Retry-After header value for 429s
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets how many times a 429 or 5xx response is retried.
// Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the first backoff delay; later attempts double it.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const acceptJSONL = "application/x-ndjson, application/jsonl, text/plain, */*"

// GetText sends a GET request and returns the response body as a string.
// Returns *APIError for non-2xx responses. Retries on 429 (honoring
// Retry-After) and 5xx (exponential backoff from the base delay).
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, rawURL, nil, http.Header{"Accept": {acceptJSONL}})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostJSON sends body as application/json with the given extra headers and
// discards the response. Retries like GetText.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body []byte, header http.Header) error {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	_, err := c.do(ctx, http.MethodPost, rawURL, body, h)
	return err
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, header http.Header) ([]byte, error) {
	var lastErr *APIError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
		if err != nil {
			return nil, err
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body[:min(len(body), maxErrorBody)])}

		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}

		return nil, apiErr
	}

	return nil, lastErr
}

// backoffDelay returns the wait duration before a retry attempt.
func (c *Client) backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.baseDelay << (attempt - 1)
}
