package testdata

import (
	"testing"

	"github.com/crimson-sun/timeline/internal/parser"
)

func TestSessionParses(t *testing.T) {
	res := parser.Parse(Session())

	if got := len(SessionLines()); got != 14 {
		t.Fatalf("expected 14 non-blank lines, got %d", got)
	}
	if len(res.Records) != 13 {
		t.Fatalf("expected 13 records, got %d", len(res.Records))
	}
	if len(res.Malformed) != 1 || res.Malformed[0].Line != 7 {
		t.Fatalf("expected line 7 malformed, got %+v", res.Malformed)
	}
	if first := res.Records[0]; first.Event.ID != "x1" || first.Valid {
		t.Fatalf("unparseable timestamp should sort first, got %s", first.Event.ID)
	}
	for i, r := range res.Records {
		if r.Raw == "" {
			t.Errorf("record[%d] has empty raw line", i)
		}
	}
}
