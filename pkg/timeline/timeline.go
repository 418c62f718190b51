package timeline

import (
	"context"
	"fmt"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/session"
	"github.com/crimson-sun/timeline/internal/source"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

// Errors returned by Viewer methods.
var (
	ErrNoEvents  = session.ErrNoEvents
	ErrNoPrompts = session.ErrNoPrompts
	ErrNotFound  = session.ErrNotFound
)

// Viewer holds one loaded session and its view settings.
type Viewer struct {
	ctrl *session.Controller
}

func newViewer(opts []Option) (*Viewer, options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	mode, ok := timefmt.ParseMode(o.tz)
	if !ok {
		return nil, o, fmt.Errorf("timeline: invalid timezone mode %q", o.tz)
	}
	ctrl := session.New(
		session.WithTZ(mode),
		session.WithFilters(model.FilterState{Query: o.query, Type: o.eventType, HideToolDetails: o.hideTool}),
	)
	return &Viewer{ctrl: ctrl}, o, nil
}

// Open loads the session at location: a file path, "-" for stdin, or an
// http(s) URL.
func Open(ctx context.Context, location string, opts ...Option) (*Viewer, error) {
	v, o, err := newViewer(opts)
	if err != nil {
		return nil, err
	}
	src, err := source.Resolve(location, source.Options{FetchTimeout: o.fetchTimeout, FetchRetries: o.fetchRetries})
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	if _, err := v.ctrl.Load(ctx, src); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	return v, nil
}

// Parse loads session content held in memory.
func Parse(content string, opts ...Option) (*Viewer, error) {
	v, _, err := newViewer(opts)
	if err != nil {
		return nil, err
	}
	if _, err := v.ctrl.LoadText(context.Background(), content, source.PastedLabel); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	return v, nil
}

// Status returns the message of the last load, such as
// "Loaded 13 events from session.jsonl".
func (v *Viewer) Status() string {
	if st := v.ctrl.Snapshot().Status; st != nil {
		return st.Message
	}
	return ""
}

// Len returns the number of events loaded, regardless of filters.
func (v *Viewer) Len() int {
	return len(v.ctrl.Snapshot().Records)
}

// Malformed lists the lines skipped by the last successful load.
func (v *Viewer) Malformed() []Malformed {
	lines := v.ctrl.Snapshot().Malformed
	out := make([]Malformed, len(lines))
	for i, l := range lines {
		out[i] = Malformed{Line: l.Line, Error: l.Err}
	}
	return out
}

// Types returns the distinct event types of the session, sorted.
func (v *Viewer) Types() []string {
	return v.ctrl.Types()
}

// Filter replaces the search query, type and hide setting.
func (v *Viewer) Filter(query, eventType string, hideToolDetails bool) {
	v.ctrl.SetFilters(model.FilterState{Query: query, Type: eventType, HideToolDetails: hideToolDetails})
}

// Timeline renders the session under the current filters.
func (v *Viewer) Timeline() Timeline {
	tl := v.ctrl.Timeline()
	out := Timeline{Showing: tl.Showing, Total: tl.Total, Duration: tl.Duration, Days: make([]Day, len(tl.Days))}
	for i, d := range tl.Days {
		day := Day{Day: d.Day, Events: make([]Event, len(d.Entries))}
		for j, e := range d.Entries {
			day.Events[j] = eventFromEntry(e)
		}
		out.Days[i] = day
	}
	return out
}

// JSON returns the indented JSON of the event with the given id.
func (v *Viewer) JSON(id string) ([]byte, error) {
	return v.ctrl.CleanJSON(id)
}

// Raw returns the source line of the event with the given id.
func (v *Viewer) Raw(id string) (string, error) {
	return v.ctrl.RawLine(id)
}

// Prompts returns every user message, separated by "\n\n---\n\n".
func (v *Viewer) Prompts() (string, error) {
	return v.ctrl.Prompts()
}

// ShareFragment encodes the view and, when small enough, the content as a
// URL fragment.
func (v *Viewer) ShareFragment() (string, error) {
	return v.ctrl.ShareFragment()
}

// Restore applies a share fragment, loading its content when present.
func (v *Viewer) Restore(ctx context.Context, fragment string) error {
	if _, err := v.ctrl.RestoreFragment(ctx, fragment); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	return nil
}

func eventFromEntry(e model.Entry) Event {
	return Event{
		ID:         e.ID,
		Type:       e.Type,
		Category:   e.Category,
		Summary:    e.Summary,
		Timestamp:  e.Timestamp,
		Clock:      e.Clock,
		Delta:      e.Delta,
		SinceStart: e.SinceStart,
	}
}
