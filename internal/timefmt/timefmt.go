// Package timefmt renders instants and durations in fixed-width forms,
// in either UTC or the local zone.
package timefmt

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode selects the zone timestamps are rendered in.
type Mode string

const (
	Local Mode = "local"
	UTC   Mode = "utc"
)

// Unknown is rendered for timestamps that could not be parsed.
const Unknown = "-"

// ParseMode converts "utc" or "local" (case-insensitive) to a Mode.
// The second return is false for anything else.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "utc":
		return UTC, true
	case "local":
		return Local, true
	default:
		return Local, false
	}
}

// Formatter renders times for a mode. Loc is the zone used in Local mode;
// nil means time.Local at render time.
type Formatter struct {
	Mode Mode
	Loc  *time.Location
}

// New returns a Formatter using the process local zone.
func New(mode Mode) Formatter {
	return Formatter{Mode: mode}
}

func (f Formatter) in(t time.Time) time.Time {
	if f.Mode == UTC {
		return t.UTC()
	}
	if f.Loc != nil {
		return t.In(f.Loc)
	}
	return t.In(time.Local)
}

// Timestamp renders "YYYY-MM-DD HH:MM:SS.mmmZ" in UTC mode and
// "YYYY-MM-DD HH:MM:SS.mmm ±HH:MM" in local mode.
func (f Formatter) Timestamp(t time.Time, valid bool) string {
	if !valid {
		return Unknown
	}
	return f.in(t).Format("2006-01-02") + " " + f.Clock(t, valid)
}

// Clock renders the time-of-day part of Timestamp, or "" when invalid.
func (f Formatter) Clock(t time.Time, valid bool) string {
	if !valid {
		return ""
	}
	lt := f.in(t)
	clock := fmt.Sprintf("%02d:%02d:%02d.%03d", lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond()/int(time.Millisecond))
	if f.Mode == UTC {
		return clock + "Z"
	}
	return clock + " " + offset(lt)
}

// DayKey renders "YYYY-MM-DD", or "-" when invalid.
func (f Formatter) DayKey(t time.Time, valid bool) string {
	if !valid {
		return Unknown
	}
	return f.in(t).Format("2006-01-02")
}

func offset(t time.Time) string {
	_, secs := t.Zone()
	mins := secs / 60
	sign := '+'
	if mins < 0 {
		sign = '-'
		mins = -mins
	}
	return fmt.Sprintf("%c%02d:%02d", sign, mins/60, mins%60)
}

// Timestamp formats t with the process local zone in local mode.
func Timestamp(t time.Time, valid bool, mode Mode) string {
	return New(mode).Timestamp(t, valid)
}

// DayKey formats the day of t with the process local zone in local mode.
func DayKey(t time.Time, valid bool, mode Mode) string {
	return New(mode).DayKey(t, valid)
}

// Delta renders a signed duration given in milliseconds:
//
//	<1s    +250ms
//	<10s   +1.25s
//	<60s   +12.5s
//	<1h    +3m 07s
//	<24h   +2h 5m
//	else   +1d 3h
//
// Non-finite input renders as "".
func Delta(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return ""
	}
	sign := "+"
	if ms < 0 {
		sign = "-"
	}
	abs := math.Abs(ms)

	switch {
	case abs < 1000:
		return fmt.Sprintf("%s%dms", sign, int64(math.Floor(abs+0.5)))
	case abs < 10_000:
		// hundredths of a second, rounded half up
		return fmt.Sprintf("%s%.2fs", sign, math.Floor(abs/10+0.5)/100)
	case abs < 60_000:
		return fmt.Sprintf("%s%.1fs", sign, math.Floor(abs/100+0.5)/10)
	case abs < 3_600_000:
		m := int64(abs / 60_000)
		s := int64(math.Mod(abs, 60_000) / 1000)
		return fmt.Sprintf("%s%dm %02ds", sign, m, s)
	case abs < 86_400_000:
		h := int64(abs / 3_600_000)
		m := int64(math.Mod(abs, 3_600_000) / 60_000)
		return fmt.Sprintf("%s%dh %dm", sign, h, m)
	default:
		d := int64(abs / 86_400_000)
		h := int64(math.Mod(abs, 86_400_000) / 3_600_000)
		return fmt.Sprintf("%s%dd %dh", sign, d, h)
	}
}

// Between renders the delta from a to b.
func Between(a, b time.Time) string {
	return Delta(float64(b.Sub(a).Milliseconds()))
}
