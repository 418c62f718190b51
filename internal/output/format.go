package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/timeline/internal/model"
)

// Verbosity controls how many fields of an entry are written.
type Verbosity int

const (
	// Minimal keeps id, type, clock, day, summary and deltas.
	Minimal Verbosity = iota
	// Standard keeps every field.
	Standard
)

// ParseVerbosity converts "minimal" or "standard" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	default:
		return Standard, fmt.Errorf("output: unknown verbosity %q", s)
	}
}

// FormatEntry returns a copy of the entry with fields stripped according to verbosity.
// At Minimal: Category, Badge and Timestamp are zeroed (omitted from JSON via omitempty);
// Clock and Day still carry the time.
func FormatEntry(e model.Entry, verbosity Verbosity) model.Entry {
	if verbosity == Minimal {
		e.Category = ""
		e.Badge = ""
		e.Timestamp = ""
	}
	return e
}
