// Package session holds the state of one loaded session log and exposes the
// views and exports derived from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crimson-sun/timeline/internal/engine"
	"github.com/crimson-sun/timeline/internal/engine/filter"
	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/parser"
	"github.com/crimson-sun/timeline/internal/share"
	"github.com/crimson-sun/timeline/internal/source"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

var (
	// ErrNoEvents is returned by exports that need a loaded collection.
	ErrNoEvents = errors.New("session: no events to share")
	// ErrNoPrompts is returned by Prompts when no user message has content.
	ErrNoPrompts = errors.New("session: no user messages found")
	// ErrNotFound is returned when no loaded event matches a key.
	ErrNotFound = errors.New("event not found")
	// ErrSuperseded is returned by a load that finished after a newer one started.
	ErrSuperseded = errors.New("load superseded by a newer load")
)

// Message returns the text shown to a user for err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoEvents):
		return "No events to share"
	case errors.Is(err, ErrNoPrompts):
		return "No user messages found"
	default:
		return err.Error()
	}
}

// SharedLabel is the source label of content restored from a share link.
const SharedLabel = "shared URL"

// PromptSeparator joins user prompts in the bulk export.
const PromptSeparator = "\n\n---\n\n"

// Level classifies a status message.
type Level string

const (
	LevelGood  Level = "good"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Status is the outcome of the most recent load.
type Status struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// State is everything the viewer shows. It is replaced as a whole on every
// change; the Records slice is never modified after a load.
type State struct {
	Records   []model.Record
	Malformed []parser.LineError
	Source    string // label of the last successful load, "" before one
	Filters   model.FilterState
	TZ        timefmt.Mode
	Status    *Status // nil before the first load
	Selected  string  // key of the selected event, "" for none
}

// Controller guards a State and performs loads against it.
type Controller struct {
	mu     sync.RWMutex
	state  State
	gen    uint64
	engine *engine.Engine
	hooks  []func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithEngine sets the engine used to render timelines.
func WithEngine(e *engine.Engine) Option {
	return func(c *Controller) { c.engine = e }
}

// WithFilters sets the initial filters.
func WithFilters(f model.FilterState) Option {
	return func(c *Controller) { c.state.Filters = f }
}

// WithTZ sets the initial timezone mode.
func WithTZ(mode timefmt.Mode) Option {
	return func(c *Controller) { c.state.TZ = mode }
}

// New creates a Controller with nothing loaded.
func New(opts ...Option) *Controller {
	c := &Controller{
		state:  State{Filters: model.DefaultFilters(), TZ: timefmt.Local},
		engine: engine.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnLoad registers fn to run after every load that replaced the collection.
// Hooks run outside the lock, in registration order.
func (c *Controller) OnLoad(fn func(State)) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Load reads src in full and replaces the collection with its events.
//
// A read failure or a file without a single valid event sets a status and
// keeps the previous collection. When another load starts before this one
// finishes, this one is discarded and ErrSuperseded is returned.
func (c *Controller) Load(ctx context.Context, src source.Source) (Status, error) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	text, err := src.Read(ctx)
	if err != nil {
		slog.Error("load failed", "source", src.Name(), "error", err)
		st := c.status(LevelError, fmt.Sprintf("Failed to load %s: %v", src.Name(), err))
		if cerr := c.commit(gen, st, nil, ""); cerr != nil {
			return st, cerr
		}
		return st, fmt.Errorf("session: load %s: %w", src.Name(), err)
	}

	res, err := parse(text)
	if err != nil {
		slog.Error("failed to parse content", "source", src.Name(), "error", err)
		st := c.status(LevelError, "Failed to parse JSONL content. Check console for details.")
		if cerr := c.commit(gen, st, nil, ""); cerr != nil {
			return st, cerr
		}
		return st, err
	}

	if len(res.Records) == 0 {
		slog.Warn("no valid events", "source", src.Name(), "malformed", len(res.Malformed))
		st := c.status(LevelWarn, "No valid events found in the file.")
		return st, c.commit(gen, st, nil, "")
	}

	st := c.status(LevelGood, fmt.Sprintf("Loaded %d events from %s", len(res.Records), src.Name()))
	if err := c.commit(gen, st, &res, src.Name()); err != nil {
		return st, err
	}
	slog.Info("loaded session", "source", src.Name(), "events", len(res.Records), "malformed", len(res.Malformed))
	return st, nil
}

// LoadText loads in-memory content under label.
func (c *Controller) LoadText(ctx context.Context, content, label string) (Status, error) {
	return c.Load(ctx, source.Text{Label: label, Content: content})
}

func (c *Controller) status(level Level, msg string) Status {
	return Status{Level: level, Message: msg, At: time.Now()}
}

func (c *Controller) commit(gen uint64, st Status, res *parser.Result, label string) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	next := c.state
	next.Status = &st
	if res != nil {
		next.Records = res.Records
		next.Malformed = res.Malformed
		next.Source = label
		next.Selected = ""
	}
	c.state = next
	hooks := append([]func(State){}, c.hooks...)
	c.mu.Unlock()

	if res != nil {
		for _, fn := range hooks {
			fn(next)
		}
	}
	return nil
}

func parse(text string) (res parser.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session: parse: %v", r)
		}
	}()
	return parser.Parse(text), nil
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	next := c.state
	fn(&next)
	c.state = next
	c.mu.Unlock()
}

// SetFilters replaces the filters.
func (c *Controller) SetFilters(f model.FilterState) {
	c.update(func(s *State) { s.Filters = f })
}

// SetQuery sets the free-text query.
func (c *Controller) SetQuery(q string) {
	c.update(func(s *State) { s.Filters.Query = q })
}

// SetType sets the type filter.
func (c *Controller) SetType(t string) {
	c.update(func(s *State) { s.Filters.Type = t })
}

// SetHideToolDetails toggles hiding of turn markers and truncation events.
func (c *Controller) SetHideToolDetails(hide bool) {
	c.update(func(s *State) { s.Filters.HideToolDetails = hide })
}

// ClearFilters restores the default filters.
func (c *Controller) ClearFilters() {
	c.SetFilters(model.DefaultFilters())
}

// SetTZ sets the timezone mode.
func (c *Controller) SetTZ(mode timefmt.Mode) {
	c.update(func(s *State) { s.TZ = mode })
}

// Select marks the event matching key as selected. An unknown key clears
// the selection and returns ErrNotFound.
func (c *Controller) Select(key string) error {
	var err error
	c.update(func(s *State) {
		if _, ok := find(s.Records, key); !ok {
			s.Selected = ""
			err = ErrNotFound
			return
		}
		s.Selected = key
	})
	return err
}

// Filtered returns the loaded records that pass the current filters.
func (c *Controller) Filtered() []model.Record {
	st := c.Snapshot()
	return filter.Apply(st.Records, st.Filters)
}

// Types returns the distinct event types of the whole collection.
func (c *Controller) Types() []string {
	return filter.DistinctTypes(c.Snapshot().Records)
}

// Timeline renders the current view.
func (c *Controller) Timeline() model.Timeline {
	st := c.Snapshot()
	return c.TimelineFor(st.Filters, st.TZ)
}

// TimelineFor renders the collection under the given filters and mode
// without changing the stored ones.
func (c *Controller) TimelineFor(f model.FilterState, mode timefmt.Mode) model.Timeline {
	records := c.Snapshot().Records
	return c.engine.Build(filter.Apply(records, f), len(records), mode)
}

// Find returns the record whose id equals key. When no id matches and key
// is a decimal number, the record at that original line index is returned,
// which addresses events without an id.
func (c *Controller) Find(key string) (model.Record, error) {
	rec, ok := find(c.Snapshot().Records, key)
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return rec, nil
}

func find(records []model.Record, key string) (model.Record, bool) {
	if key == "" {
		return model.Record{}, false
	}
	for _, r := range records {
		if r.Event.ID == key {
			return r, true
		}
	}
	if idx, err := strconv.Atoi(key); err == nil {
		for _, r := range records {
			if r.Index == idx {
				return r, true
			}
		}
	}
	return model.Record{}, false
}

// RawLine returns the source line of the event matching key.
func (c *Controller) RawLine(key string) (string, error) {
	rec, err := c.Find(key)
	if err != nil {
		return "", err
	}
	return rec.Raw, nil
}

// CleanJSON returns the event matching key pretty-printed without any
// parse-time fields.
func (c *Controller) CleanJSON(key string) ([]byte, error) {
	rec, err := c.Find(key)
	if err != nil {
		return nil, err
	}
	return PrettyJSON(rec.Event, 0)
}

// DetailJSON is CleanJSON with, when truncate is set, every string value
// longer than DetailMaxString cut short.
func (c *Controller) DetailJSON(key string, truncate bool) ([]byte, error) {
	rec, err := c.Find(key)
	if err != nil {
		return nil, err
	}
	limit := 0
	if truncate {
		limit = DetailMaxString
	}
	return PrettyJSON(rec.Event, limit)
}

// Prompts joins the content of every user message, in timeline order.
func (c *Controller) Prompts() (string, error) {
	var parts []string
	for _, r := range c.Snapshot().Records {
		if r.Event.Type != model.TypeUserMessage {
			continue
		}
		parts = append(parts, model.Text(r.Event.Fields()["content"]))
	}
	out := strings.Join(parts, PromptSeparator)
	if out == "" {
		return "", ErrNoPrompts
	}
	return out, nil
}

// Content returns the raw lines of the loaded collection in timeline order.
func (c *Controller) Content() string {
	records := c.Snapshot().Records
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Raw
	}
	return strings.Join(lines, "\n")
}

// ShareFragment encodes the current filters, timezone and, when small
// enough, the loaded content.
func (c *Controller) ShareFragment() (string, error) {
	st := c.Snapshot()
	if len(st.Records) == 0 {
		return "", ErrNoEvents
	}
	return share.EncodeFragment(share.State{TZ: st.TZ, Filters: st.Filters, Content: c.Content()}), nil
}

// RestoreFragment applies the filters and timezone of a share fragment and
// loads its embedded content, if any. The returned status is nil when the
// fragment carried no content.
func (c *Controller) RestoreFragment(ctx context.Context, fragment string) (*Status, error) {
	st := share.DecodeFragment(fragment)
	c.update(func(s *State) {
		s.TZ = st.TZ
		s.Filters = st.Filters
	})
	if st.Content == "" {
		return nil, nil
	}
	status, err := c.LoadText(ctx, st.Content, SharedLabel)
	return &status, err
}
