// Package filter derives filtered views of a loaded event collection.
package filter

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crimson-sun/timeline/internal/model"
)

// HiddenTypes are the event types excluded when HideToolDetails is set.
var HiddenTypes = map[string]bool{
	model.TypeAssistantTurnStart: true,
	model.TypeAssistantTurnEnd:   true,
	model.TypeSessionTruncation:  true,
}

// Apply returns the records matching every predicate of state. The input
// slice is never modified; the result is always a new slice.
func Apply(records []model.Record, state model.FilterState) []model.Record {
	m := NewMatcher(state)
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matcher evaluates one filter state against records. A Matcher holds a
// case folder and must not be shared between goroutines.
type Matcher struct {
	state  model.FilterState
	query  string
	folder cases.Caser
}

// NewMatcher prepares state for repeated evaluation.
func NewMatcher(state model.FilterState) *Matcher {
	m := &Matcher{state: state, folder: cases.Lower(language.Und)}
	if state.Query != "" {
		m.query = m.folder.String(state.Query)
	}
	return m
}

// Match reports whether r passes the filter. Cheap type checks run before
// the full-text search.
func (m *Matcher) Match(r model.Record) bool {
	t := m.state.Type
	if t != "" && t != model.TypeAll && r.Event.Type != t {
		return false
	}
	if m.state.HideToolDetails && HiddenTypes[r.Event.Type] {
		return false
	}
	if m.state.Query != "" {
		return strings.Contains(m.folder.String(SearchText(r)), m.query)
	}
	return true
}

// isoMillis is the normalized instant form appended to the search text.
const isoMillis = "2006-01-02T15:04:05.000Z"

// SearchText is the text free-text queries are matched against: the
// serialized event with nested data, then the resolved instant in UTC ISO
// form when the timestamp was valid, so a query in that form finds events
// whose source wrote the time differently. The source line and its index
// are not searched.
func SearchText(r model.Record) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Event); err != nil {
		buf.Reset()
		buf.WriteString(r.Event.Type)
		buf.WriteByte('\n')
	}
	if r.Valid {
		buf.WriteString(r.Time.UTC().Format(isoMillis))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// DistinctTypes returns the set of event types present in records,
// sorted ascending.
func DistinctTypes(records []model.Record) []string {
	seen := make(map[string]bool)
	types := []string{}
	for _, r := range records {
		if !seen[r.Event.Type] {
			seen[r.Event.Type] = true
			types = append(types, r.Event.Type)
		}
	}
	sort.Strings(types)
	return types
}
