// Package pipeline connects a source, the session controller and an output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output"
	"github.com/crimson-sun/timeline/internal/session"
	"github.com/crimson-sun/timeline/internal/source"
)

// ErrNotWatchable is returned by Watch for sources without a path on disk.
var ErrNotWatchable = errors.New("pipeline: source cannot be watched")

const defaultDebounce = 250 * time.Millisecond

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebounce sets how long Watch waits after the last change before
// reloading. Default: 250ms.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) { p.debounce = d }
}

// WithOnReload registers a hook called with the rendered timeline after
// every reload performed by Watch.
func WithOnReload(fn func(model.Timeline)) Option {
	return func(p *Pipeline) { p.onReload = append(p.onReload, fn) }
}

// Pipeline loads a source into a controller and writes the filtered
// timeline to an output.
type Pipeline struct {
	source   source.Source
	ctrl     *session.Controller
	output   output.Output // nil skips writing
	debounce time.Duration
	onReload []func(model.Timeline)
}

// New creates a Pipeline from the given components. out may be nil when
// the timeline is consumed through the controller instead.
func New(src source.Source, ctrl *session.Controller, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   src,
		ctrl:     ctrl,
		output:   out,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads the source once and writes the filtered timeline.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.ctrl.Load(ctx, p.source); err != nil {
		return fmt.Errorf("pipeline load: %w", err)
	}
	return p.emit(ctx)
}

func (p *Pipeline) emit(ctx context.Context) error {
	if p.output == nil {
		return nil
	}
	if r, ok := p.output.(interface{ Reset() }); ok {
		r.Reset()
	}
	for _, entry := range p.ctrl.Timeline().Entries() {
		if err := p.output.Write(ctx, entry); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

// Watch reloads the source whenever its file changes, until ctx is
// cancelled. The containing directory is watched so files replaced by
// rename are picked up.
func (p *Pipeline) Watch(ctx context.Context) error {
	ws, ok := p.source.(source.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	path, err := filepath.Abs(ws.WatchPath())
	if err != nil {
		return fmt.Errorf("pipeline watch: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pipeline watch: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("pipeline watch %s: %w", dir, err)
	}
	slog.Info("watching for changes", "path", path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(p.debounce)
			} else {
				timer.Reset(p.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			p.reload(ctx)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

func (p *Pipeline) reload(ctx context.Context) {
	st, err := p.ctrl.Load(ctx, p.source)
	if err != nil {
		slog.Warn("reload failed", "source", p.source.Name(), "error", err)
		return
	}
	if st.Level != session.LevelGood {
		return
	}
	if err := p.emit(ctx); err != nil {
		slog.Warn("reload output failed", "error", err)
	}
	tl := p.ctrl.Timeline()
	for _, fn := range p.onReload {
		fn(tl)
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}
