package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/timeline/internal/engine/filter"
	"github.com/crimson-sun/timeline/internal/engine/testdata"
	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/parser"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

func TestProcessExample(t *testing.T) {
	recs := parser.ParseRecords(`{"type":"user.message","data":{"content":"hi"},"id":"1","timestamp":"2024-01-01T00:00:00.000Z","parentId":null}
{"type":"session.end","data":{},"id":"2","timestamp":"2024-01-01T00:00:01.000Z","parentId":null}`)
	eng := New()

	tl := eng.Build(recs, len(recs), timefmt.UTC)
	entries := tl.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Summary != "User: hi" || entries[1].Summary != "Session ended" {
		t.Fatalf("unexpected summaries: %q, %q", entries[0].Summary, entries[1].Summary)
	}
	if entries[0].Delta != "" {
		t.Fatalf("first entry should have no delta, got %q", entries[0].Delta)
	}
	if entries[1].Delta != "+1.00s" {
		t.Fatalf("expected delta +1.00s, got %q", entries[1].Delta)
	}
	if entries[0].Badge != "badge-user" || entries[1].Category != "session" {
		t.Fatalf("unexpected classification: %+v", entries)
	}
	if entries[0].Clock != "00:00:00.000Z" {
		t.Fatalf("unexpected clock %q", entries[0].Clock)
	}
	if tl.Duration != "+1.00s" {
		t.Fatalf("unexpected duration %q", tl.Duration)
	}
}

func TestProcessUnknownTimestamp(t *testing.T) {
	recs := parser.ParseRecords("{\"bad json\n" + `{"type":"session.end","data":{},"id":"2","timestamp":"t","parentId":null}`)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	entry := New().Process(recs[0], timefmt.Local)
	if entry.Day != "-" || entry.Timestamp != "-" || entry.Clock != "" {
		t.Fatalf("unexpected rendering of unknown timestamp: %+v", entry)
	}
}

func TestBuildGroupsByDay(t *testing.T) {
	recs := parser.ParseRecords(testdata.Session())
	tl := New().Build(recs, len(recs), timefmt.UTC)

	var days []string
	for _, d := range tl.Days {
		days = append(days, d.Day)
	}
	if got := strings.Join(days, ","); got != "-,2024-05-01,2024-05-02" {
		t.Fatalf("unexpected day groups %s", got)
	}
	if tl.Showing != 13 || tl.Total != 13 {
		t.Fatalf("unexpected counts %d/%d", tl.Showing, tl.Total)
	}

	may1 := tl.Days[1].Entries
	if may1[0].Delta != "" {
		t.Fatalf("first entry of a day should have no delta, got %q", may1[0].Delta)
	}
	if may1[1].Delta != "+250ms" {
		t.Fatalf("expected +250ms, got %q", may1[1].Delta)
	}
	// The first entry of the view has an unknown timestamp, so no offsets.
	if may1[1].SinceStart != "" {
		t.Fatalf("expected no offset when the first timestamp is unknown, got %q", may1[1].SinceStart)
	}
	if tl.Days[2].Entries[0].Delta != "" {
		t.Fatalf("day boundary should reset delta, got %q", tl.Days[2].Entries[0].Delta)
	}
}

func TestBuildSinceStart(t *testing.T) {
	recs := parser.ParseRecords(testdata.Session())
	view := filter.Apply(recs, model.FilterState{Type: model.TypeUserMessage})
	tl := New().Build(view, len(recs), timefmt.UTC)
	entries := tl.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 user messages, got %d", len(entries))
	}
	if entries[0].SinceStart != "+0ms" {
		t.Fatalf("expected +0ms, got %q", entries[0].SinceStart)
	}
	if entries[1].SinceStart != "+15h 14m" {
		t.Fatalf("expected +15h 14m, got %q", entries[1].SinceStart)
	}
	if tl.Duration != "+15h 14m" {
		t.Fatalf("expected duration +15h 14m, got %q", tl.Duration)
	}
	if tl.Showing != 2 || tl.Total != 13 {
		t.Fatalf("unexpected counts %d/%d", tl.Showing, tl.Total)
	}
}

func TestBuildEmpty(t *testing.T) {
	tl := New().Build(nil, 5, timefmt.UTC)
	if tl.Duration != "-" || tl.Showing != 0 || tl.Total != 5 || len(tl.Days) != 0 {
		t.Fatalf("unexpected empty timeline %+v", tl)
	}
}

func TestBuildLocalZone(t *testing.T) {
	recs := parser.ParseRecords(`{"type":"user.message","data":{},"id":"1","timestamp":"2024-01-01T23:30:00Z","parentId":null}`)
	eng := New(WithLocation(time.FixedZone("x", 2*3600)))
	e := eng.Process(recs[0], timefmt.Local)
	if e.Day != "2024-01-02" || e.Clock != "01:30:00.000 +02:00" {
		t.Fatalf("unexpected local rendering %+v", e)
	}
}
