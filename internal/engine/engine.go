package engine

import (
	"time"

	"github.com/crimson-sun/timeline/internal/engine/classifier"
	"github.com/crimson-sun/timeline/internal/engine/summarizer"
	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

// Engine renders records into timeline entries: classify → summarize → format.
type Engine struct {
	loc *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone used for local-mode rendering. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) formatter(mode timefmt.Mode) timefmt.Formatter {
	return timefmt.Formatter{Mode: mode, Loc: e.loc}
}

// Process renders a single record. Delta and SinceStart are left empty;
// they depend on the surrounding view and are filled in by Build.
func (e *Engine) Process(rec model.Record, mode timefmt.Mode) model.Entry {
	f := e.formatter(mode)
	cls := classifier.Classify(rec.Event.Type)
	return model.Entry{
		ID:        rec.Event.ID,
		Type:      rec.Event.Type,
		Category:  cls.Category,
		Badge:     cls.Badge,
		Summary:   summarizer.Summarize(rec.Event),
		Timestamp: f.Timestamp(rec.Time, rec.Valid),
		Clock:     f.Clock(rec.Time, rec.Valid),
		Day:       f.DayKey(rec.Time, rec.Valid),
		Index:     rec.Index,
	}
}

// Build renders a filtered view. total is the size of the unfiltered
// collection the view was derived from.
//
// Entries are grouped into runs sharing a day key. Within a run each entry
// carries the positive delta to its predecessor; every entry carries its
// offset from the first entry of the view when both timestamps are known.
func (e *Engine) Build(view []model.Record, total int, mode timefmt.Mode) model.Timeline {
	tl := model.Timeline{Days: []model.DayGroup{}, Showing: len(view), Total: total, Duration: timefmt.Unknown}
	if len(view) == 0 {
		return tl
	}

	first := view[0]
	var prev model.Record
	for i, rec := range view {
		entry := e.Process(rec, mode)

		if n := len(tl.Days); n == 0 || tl.Days[n-1].Day != entry.Day {
			tl.Days = append(tl.Days, model.DayGroup{Day: entry.Day})
		} else if prev.Valid && rec.Valid {
			if d := rec.Millis() - prev.Millis(); d > 0 {
				entry.Delta = timefmt.Delta(float64(d))
			}
		}
		if first.Valid && rec.Valid {
			entry.SinceStart = timefmt.Delta(float64(rec.Millis() - first.Millis()))
		}

		last := &tl.Days[len(tl.Days)-1]
		last.Entries = append(last.Entries, entry)
		if i == len(view)-1 {
			tl.Duration = timefmt.Delta(float64(rec.Millis() - first.Millis()))
		}
		prev = rec
	}
	return tl
}
