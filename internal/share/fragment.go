package share

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

// MaxContentLength is the content size, in characters, at and above which
// a share link carries filters only.
const MaxContentLength = 50_000

// Fragment keys.
const (
	keyTZ      = "tz"
	keyQuery   = "q"
	keyType    = "type"
	keyHide    = "hide"
	keyContent = "content"
)

// State is the part of the viewer reproduced by a share link.
type State struct {
	TZ      timefmt.Mode
	Filters model.FilterState
	Content string // raw file text; "" when not embedded
}

// DefaultState is what an empty fragment restores to.
func DefaultState() State {
	return State{TZ: timefmt.Local, Filters: model.DefaultFilters()}
}

// EncodeFragment renders s as "tz=..&q=..&type=..&hide=1&content=..",
// omitting keys that hold their default. Content is embedded only when it is
// shorter than MaxContentLength and encodes successfully.
func EncodeFragment(s State) string {
	tz := s.TZ
	if tz != timefmt.UTC {
		tz = timefmt.Local
	}
	var b strings.Builder
	add := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}

	add(keyTZ, string(tz))
	if s.Filters.Query != "" {
		add(keyQuery, s.Filters.Query)
	}
	if t := s.Filters.Type; t != "" && t != model.TypeAll {
		add(keyType, t)
	}
	if s.Filters.HideToolDetails {
		add(keyHide, "1")
	}
	if s.Content != "" && utf8.RuneCountInString(s.Content) < MaxContentLength {
		if enc := Encode(s.Content); enc != "" {
			add(keyContent, enc)
		}
	}
	return b.String()
}

// DecodeFragment parses a fragment produced by EncodeFragment. A leading
// "#" is accepted. Unrecognized keys and invalid values are ignored, so the
// corresponding state keeps its default. Content that fails to decode is
// left empty.
func DecodeFragment(fragment string) State {
	st := DefaultState()
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" {
		return st
	}
	vals, _ := url.ParseQuery(fragment)

	if mode, ok := timefmt.ParseMode(vals.Get(keyTZ)); ok && vals.Get(keyTZ) == string(mode) {
		st.TZ = mode
	}
	if q := vals.Get(keyQuery); q != "" {
		st.Filters.Query = q
	}
	if t := vals.Get(keyType); t != "" {
		st.Filters.Type = t
	}
	if vals.Get(keyHide) == "1" {
		st.Filters.HideToolDetails = true
	}
	if c := vals.Get(keyContent); c != "" {
		st.Content = Decode(c)
	}
	return st
}
