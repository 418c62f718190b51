package model

import "time"

// Record wraps a parsed Event with the fields the parser derives from it.
// None of these fields are part of the wire format.
type Record struct {
	Event Event

	Raw   string    // trimmed source line, verbatim
	Time  time.Time // resolved timestamp; meaningful only when Valid
	Valid bool      // false when Event.Timestamp could not be parsed
	Index int       // zero-based position among non-blank input lines
}

// Millis returns the resolved timestamp in Unix milliseconds, or 0 when the
// timestamp was unparseable. This is the ordering key for a collection.
func (r Record) Millis() int64 {
	if !r.Valid {
		return 0
	}
	return r.Time.UnixMilli()
}
