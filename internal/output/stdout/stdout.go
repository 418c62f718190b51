// Package stdout writes timeline entries as NDJSON to the process output.
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output"
)

// Output encodes one entry per line, or as indented blocks when pretty.
type Output struct {
	mu        sync.Mutex
	enc       *json.Encoder
	verbosity output.Verbosity
}

// New writes to w, or to os.Stdout when w is nil.
func New(w io.Writer, verbosity output.Verbosity, pretty bool) *Output {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, entry model.Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatEntry(entry, o.verbosity)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error { return nil }
