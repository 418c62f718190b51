// Package parser turns raw JSONL text into a time-ordered collection of
// event records, skipping lines that are not valid event objects.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/crimson-sun/timeline/internal/model"
)

// LineError describes one non-blank line that could not be parsed.
type LineError struct {
	Line int    `json:"line"` // 1-based, counted among non-blank lines
	Raw  string `json:"raw"`
	Err  string `json:"error"`
}

// Result is the outcome of parsing one loaded file.
type Result struct {
	Records   []model.Record
	Malformed []LineError
}

// Parse splits content into lines, decodes each non-blank line as an event
// and returns the records stably sorted by resolved timestamp. Malformed
// lines are logged and skipped; they never abort the parse.
func Parse(content string) Result {
	var res Result
	idx := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimFunc(line, isTrimmable)
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			slog.Warn("skipping malformed line", "line", idx+1, "error", err)
			res.Malformed = append(res.Malformed, LineError{Line: idx + 1, Raw: line, Err: err.Error()})
			idx++
			continue
		}
		rec.Index = idx
		res.Records = append(res.Records, rec)
		idx++
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		return res.Records[i].Millis() < res.Records[j].Millis()
	})
	return res
}

// ParseRecords is Parse without the diagnostics.
func ParseRecords(content string) []model.Record {
	return Parse(content).Records
}

func parseLine(line string) (model.Record, error) {
	if line[0] != '{' {
		return model.Record{}, fmt.Errorf("parse: %w", model.ErrNotObject)
	}
	var ev model.Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return model.Record{}, fmt.Errorf("parse: %w", err)
	}
	t, ok := resolveTime(ev)
	return model.Record{Event: ev, Raw: line, Time: t, Valid: ok}, nil
}

// resolveTime reads a numeric timestamp as Unix milliseconds and anything
// else as text.
func resolveTime(ev model.Event) (time.Time, bool) {
	if ms, ok := ev.NumericTimestamp(); ok {
		return FromUnixMilli(ms)
	}
	return ParseTimestamp(ev.Timestamp)
}

// isTrimmable matches whitespace and the byte order mark, which editors
// leave at the start of a file.
func isTrimmable(r rune) bool {
	return r == '\uFEFF' || unicode.IsSpace(r)
}
