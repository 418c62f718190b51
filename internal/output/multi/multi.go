// Package multi sends each timeline entry to several outputs at once, for
// example the printed view plus a webhook mirror.
package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output"
)

// Multi is an output.Output over a fixed list of destinations, written in
// the order given.
type Multi struct {
	outputs []output.Output
}

func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write hands entry to every destination even when an earlier one fails;
// the failures come back joined.
func (m *Multi) Write(ctx context.Context, entry model.Entry) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset starts a new render on every destination that supports it, such
// as the text output's day heading or the file output's truncation.
func (m *Multi) Reset() {
	for _, o := range m.outputs {
		if r, ok := o.(interface{ Reset() }); ok {
			r.Reset()
		}
	}
}

func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}
