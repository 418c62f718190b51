// Package file writes timeline entries as NDJSON to a local file.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output"
)

const (
	defaultBufSize    = 64 * 1024
	defaultMaxBackups = 5
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize rotates the file once it would grow past n bytes.
// 0 (default) disables rotation.
func WithMaxSize(n int64) Option {
	return func(o *Output) { o.maxSize = n }
}

// WithMaxBackups sets how many rotated files ({path}.1 ... {path}.n) are
// kept. Older ones are removed. Default: 5.
func WithMaxBackups(n int) Option {
	return func(o *Output) { o.maxBackups = n }
}

// WithBufSize sets the write buffer size. Default: 64KB.
func WithBufSize(n int) Option {
	return func(o *Output) { o.bufSize = n }
}

// Output appends one JSON object per entry. It is safe for concurrent use.
type Output struct {
	path       string
	verbosity  output.Verbosity
	maxSize    int64
	maxBackups int
	bufSize    int

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	size int64 // bytes in the current file, buffered included
	err  error // sticky error from Reset, reported by the next Write
}

// New opens path for appending, creating it if needed.
func New(path string, verbosity output.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		path:       path,
		verbosity:  verbosity,
		maxBackups: defaultMaxBackups,
		bufSize:    defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) Write(_ context.Context, entry model.Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(output.FormatEntry(entry, o.verbosity)); err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	line := buf.Bytes()

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.err; err != nil {
		o.err = nil
		return err
	}
	if o.f == nil {
		return fmt.Errorf("file output: %s is closed", o.path)
	}
	if o.shouldRotate(len(line)) {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate %s: %w", o.path, err)
		}
	}
	n, err := o.w.Write(line)
	o.size += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write %s: %w", o.path, err)
	}
	return nil
}

// Reset truncates the file so it holds only what is written next. Rotated
// backups are left alone.
func (o *Output) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.f == nil {
		return
	}
	o.w.Reset(o.f)
	if err := o.f.Truncate(0); err != nil {
		o.err = fmt.Errorf("file output: truncate %s: %w", o.path, err)
		return
	}
	o.size = 0
}

// Close flushes buffered lines and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.f == nil {
		return nil
	}
	err := o.w.Flush()
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	o.f, o.w = nil, nil
	if err != nil {
		return fmt.Errorf("file output: close %s: %w", o.path, err)
	}
	return nil
}

// shouldRotate never rotates an empty file, so a single oversized line
// still lands somewhere.
func (o *Output) shouldRotate(n int) bool {
	return o.maxSize > 0 && o.size > 0 && o.size+int64(n) > o.maxSize
}

func (o *Output) open(mode int) error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.size = info.Size()
	return nil
}

// rotate shifts {path}.i to {path}.i+1, drops anything past maxBackups and
// moves the current file to {path}.1.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}
	o.f, o.w = nil, nil

	if o.maxBackups <= 0 {
		if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return o.open(os.O_TRUNC)
	}
	os.Remove(backup(o.path, o.maxBackups))
	for i := o.maxBackups - 1; i >= 1; i-- {
		os.Rename(backup(o.path, i), backup(o.path, i+1))
	}
	if err := os.Rename(o.path, backup(o.path, 1)); err != nil {
		return err
	}
	return o.open(os.O_TRUNC)
}

func backup(path string, i int) string {
	return fmt.Sprintf("%s.%d", path, i)
}
