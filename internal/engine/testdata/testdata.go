package testdata

import (
	_ "embed"
	"strings"
)

//go:embed session.jsonl
var sessionJSONL string

// Session returns a recorded CLI session log covering every event type the
// summarizer knows, one malformed line and one unparseable timestamp.
func Session() string {
	return sessionJSONL
}

// SessionLines returns the non-blank lines of Session.
func SessionLines() []string {
	var out []string
	for _, l := range strings.Split(sessionJSONL, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
