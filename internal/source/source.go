// Package source reads the full text of a session log from a file, a reader
// such as stdin, or a URL.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/crimson-sun/timeline/internal/source/httpclient"
)

// PastedLabel names text that did not come from a named file or URL.
const PastedLabel = "pasted content"

// Source defines the interface all log sources must implement.
type Source interface {
	// Name is the label shown in status messages.
	Name() string

	// Read returns the complete text of the log.
	Read(ctx context.Context) (string, error)
}

// Watchable is a Source backed by a path on disk that can be watched for
// changes.
type Watchable interface {
	Source
	WatchPath() string
}

// File reads a log from disk.
type File struct {
	Path string
}

func (f File) Name() string { return f.Path }

func (f File) WatchPath() string { return f.Path }

func (f File) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	return string(b), nil
}

// Text is in-memory content, such as text pasted into the viewer or a
// fragment restored from a share link.
type Text struct {
	Label   string // defaults to PastedLabel
	Content string
}

func (t Text) Name() string {
	if t.Label == "" {
		return PastedLabel
	}
	return t.Label
}

func (t Text) Read(context.Context) (string, error) { return t.Content, nil }

// Reader drains an io.Reader, typically stdin. It can be read once.
type Reader struct {
	Label string // defaults to PastedLabel
	R     io.Reader
}

func (r Reader) Name() string {
	if r.Label == "" {
		return PastedLabel
	}
	return r.Label
}

func (r Reader) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := io.ReadAll(r.R)
	if err != nil {
		return "", fmt.Errorf("source: reading %s: %w", r.Name(), err)
	}
	return string(b), nil
}

// URL fetches a log over HTTP(S).
type URL struct {
	Location string
	Client   *httpclient.Client // nil uses a default client
}

func (u URL) Name() string { return u.Location }

func (u URL) Read(ctx context.Context) (string, error) {
	c := u.Client
	if c == nil {
		c = httpclient.New()
	}
	text, err := c.GetText(ctx, u.Location)
	if err != nil {
		return "", fmt.Errorf("source: fetching %s: %w", u.Location, err)
	}
	return text, nil
}

// Options tune the sources built by Resolve.
type Options struct {
	Stdin        io.Reader     // used for "-"; defaults to os.Stdin
	FetchTimeout time.Duration // zero keeps the client default
	FetchRetries int           // negative keeps the client default
}

// Resolve picks a Source for location: "-" reads stdin, a registered URL
// scheme uses that scheme's constructor, anything else is a file path.
func Resolve(location string, opts Options) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("source: empty location")
	}
	if location == "-" {
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		return Reader{R: in}, nil
	}
	if scheme, _, ok := strings.Cut(location, "://"); ok {
		ctor, err := Get(strings.ToLower(scheme))
		if err != nil {
			return nil, err
		}
		return ctor(location, opts), nil
	}
	return File{Path: location}, nil
}

func newURL(location string, opts Options) Source {
	var copts []httpclient.Option
	if opts.FetchTimeout > 0 {
		copts = append(copts, httpclient.WithTimeout(opts.FetchTimeout))
	}
	if opts.FetchRetries >= 0 {
		copts = append(copts, httpclient.WithMaxRetries(opts.FetchRetries))
	}
	return URL{Location: location, Client: httpclient.New(copts...)}
}

func init() {
	Register("http", newURL)
	Register("https", newURL)
}
