package timeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crimson-sun/timeline/internal/engine/testdata"
)

func TestParse(t *testing.T) {
	v, err := Parse(testdata.Session(), WithTZ("utc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Len() != 13 {
		t.Fatalf("expected 13 events, got %d", v.Len())
	}
	if got := v.Status(); got != "Loaded 13 events from pasted content" {
		t.Errorf("unexpected status %q", got)
	}
	mal := v.Malformed()
	if len(mal) != 1 || mal[0].Line != 7 {
		t.Errorf("expected malformed line 7, got %+v", mal)
	}

	tl := v.Timeline()
	if tl.Showing != 13 || tl.Total != 13 {
		t.Errorf("expected 13 of 13, got %d of %d", tl.Showing, tl.Total)
	}
	if len(tl.Days) != 3 || tl.Days[0].Day != "-" {
		t.Errorf("expected unknown day first of 3, got %+v", tl.Days)
	}
}

func TestInvalidTZ(t *testing.T) {
	if _, err := Parse(testdata.Session(), WithTZ("pst")); err == nil {
		t.Fatal("expected error for invalid tz")
	}
}

func TestFilter(t *testing.T) {
	v, err := Parse(testdata.Session(), WithType("user.message"))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Timeline().Showing; got != 2 {
		t.Fatalf("expected 2 user messages, got %d", got)
	}
	v.Filter("", "all", true)
	if got := v.Timeline().Showing; got != 10 {
		t.Errorf("expected 10 with tool details hidden, got %d", got)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	if err := os.WriteFile(path, []byte(testdata.Session()), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(v.Status(), path) {
		t.Errorf("expected status to name the file, got %q", v.Status())
	}
	raw, err := v.Raw("u2")
	if err != nil || !strings.Contains(raw, `"Thanks!"`) {
		t.Errorf("Raw(u2) = %q, %v", raw, err)
	}
	data, err := v.JSON("u2")
	if err != nil || !strings.Contains(string(data), `"content": "Thanks!"`) {
		t.Errorf("JSON(u2) = %s, %v", data, err)
	}
	if _, err := v.JSON("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestShareRoundTrip(t *testing.T) {
	v, err := Parse(testdata.Session(), WithTZ("utc"), WithQuery("bash"))
	if err != nil {
		t.Fatal(err)
	}
	frag, err := v.ShareFragment()
	if err != nil {
		t.Fatal(err)
	}

	other, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.ShareFragment(); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
	if err := other.Restore(context.Background(), frag); err != nil {
		t.Fatal(err)
	}
	if other.Len() != 13 {
		t.Fatalf("expected 13 events restored, got %d", other.Len())
	}
	if got, want := other.Timeline().Showing, v.Timeline().Showing; got != want {
		t.Errorf("restored view shows %d, want %d", got, want)
	}
}

func TestPrompts(t *testing.T) {
	v, err := Parse(testdata.Session())
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.Prompts()
	if err != nil {
		t.Fatal(err)
	}
	if got != "List the files\nin this repo\n\n---\n\nThanks!" {
		t.Errorf("unexpected prompts %q", got)
	}
}
