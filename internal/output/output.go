// Package output defines destinations for rendered timeline entries.
package output

import (
	"context"

	"github.com/crimson-sun/timeline/internal/model"
)

// Output defines the interface for timeline entry destinations.
type Output interface {
	Write(ctx context.Context, entry model.Entry) error
	Close() error
}
