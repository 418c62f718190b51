// Package async wraps an output so writers never wait on slow delivery.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async: output closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write drop the entry instead of blocking when the
// buffer is full. Dropped entries are counted, see Dropped.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for buffered entries to be
// delivered. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async hands entries to a background goroutine that delivers them to the
// wrapped output in order. Errors from the inner output go to errFunc
// rather than back to the writer.
type Async struct {
	inner        output.Output
	ch           chan model.Entry
	quit         chan struct{}
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration
	dropped      atomic.Uint64
	closeOnce    sync.Once
}

// New wraps inner and starts delivering immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Entry, a.bufSize)
	a.quit = make(chan struct{})
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the entry. When the buffer is full it blocks until there is
// room or ctx is done, unless WithDropOnFull is set.
func (a *Async) Write(ctx context.Context, entry model.Entry) error {
	select {
	case <-a.quit:
		return ErrClosed
	default:
	}

	if a.dropOnFull {
		select {
		case a.ch <- entry:
		default:
			if a.dropped.Add(1) == 1 {
				slog.Warn("async output buffer full, dropping entries", "id", entry.ID)
			}
		}
		return nil
	}

	select {
	case a.ch <- entry:
		return nil
	case <-a.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many entries were discarded because the buffer was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting entries, waits for the buffered ones to be
// delivered (up to the drain timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.quit)
		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "pending", len(a.ch))
		}
		if n := a.dropped.Load(); n > 0 {
			slog.Warn("async output dropped entries", "count", n)
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for {
		select {
		case entry := <-a.ch:
			a.deliver(entry)
		case <-a.quit:
			for {
				select {
				case entry := <-a.ch:
					a.deliver(entry)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) deliver(entry model.Entry) {
	if err := a.inner.Write(context.Background(), entry); err != nil {
		a.errFunc(err)
	}
}
