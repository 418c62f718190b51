package parser

import (
	"math"
	"strings"
	"time"
)

// maxMillis bounds the representable instants: 100,000,000 days either side
// of the epoch.
const maxMillis = 8.64e15

// Layouts carrying their own zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
}

// Date-time layouts without a zone are interpreted in local time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
}

// Date-only layouts are interpreted as UTC midnight.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseTimestamp resolves an ISO-8601 style timestamp. The second return is
// false when s is not a recognizable instant.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FromUnixMilli resolves a millisecond offset from the epoch, dropping any
// fractional part. Offsets beyond maxMillis are not instants.
func FromUnixMilli(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.Abs(ms) > maxMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(math.Trunc(ms))).UTC(), true
}
