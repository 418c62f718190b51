// Package text renders timeline entries as styled terminal lines.
package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/timeline/internal/engine/classifier"
	"github.com/crimson-sun/timeline/internal/model"
)

// Category colors, keyed by classifier category.
var categoryColors = map[string]lipgloss.Color{
	classifier.Session:   lipgloss.Color("13"),
	classifier.User:      lipgloss.Color("12"),
	classifier.Assistant: lipgloss.Color("10"),
	classifier.Tool:      lipgloss.Color("11"),
	classifier.Other:     lipgloss.Color("8"),
}

// Styles holds the styles used for one line of output.
type Styles struct {
	Day     lipgloss.Style
	Clock   lipgloss.Style
	Delta   lipgloss.Style
	Summary lipgloss.Style
	badges  map[string]lipgloss.Style
}

// NewStyles builds styles bound to r, so color output follows the
// capabilities of the writer r was created for.
func NewStyles(r *lipgloss.Renderer) Styles {
	s := Styles{
		Day:     r.NewStyle().Bold(true).Underline(true),
		Clock:   r.NewStyle().Faint(true),
		Delta:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Summary: r.NewStyle(),
		badges:  make(map[string]lipgloss.Style, len(categoryColors)),
	}
	for cat, color := range categoryColors {
		s.badges[cat] = r.NewStyle().Foreground(color).Bold(true)
	}
	return s
}

// Badge returns the style for a category.
func (s Styles) Badge(category string) lipgloss.Style {
	if st, ok := s.badges[category]; ok {
		return st
	}
	return s.badges[classifier.Other]
}

// Output writes one line per entry and a heading whenever the day changes.
type Output struct {
	mu      sync.Mutex
	w       io.Writer
	styles  Styles
	lastDay string
	started bool
}

// New creates a text Output writing to w. A nil w writes to stdout.
func New(w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{w: w, styles: NewStyles(lipgloss.NewRenderer(w))}
}

func (o *Output) Write(_ context.Context, entry model.Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var b strings.Builder
	if !o.started || entry.Day != o.lastDay {
		if o.started {
			b.WriteByte('\n')
		}
		b.WriteString(o.styles.Day.Render(entry.Day))
		b.WriteByte('\n')
		o.started = true
		o.lastDay = entry.Day
	}
	b.WriteString(FormatLine(o.styles, entry))
	b.WriteByte('\n')

	if _, err := io.WriteString(o.w, b.String()); err != nil {
		return fmt.Errorf("text output: %w", err)
	}
	return nil
}

// Reset forgets the current day so the next entry starts a new heading.
func (o *Output) Reset() {
	o.mu.Lock()
	o.started = false
	o.lastDay = ""
	o.mu.Unlock()
}

func (o *Output) Close() error {
	return nil
}

// FormatLine renders "clock  type  summary  delta" for one entry.
func FormatLine(s Styles, e model.Entry) string {
	clock := e.Clock
	if clock == "" {
		clock = "-"
	}
	parts := []string{
		s.Clock.Render(fmt.Sprintf("%-20s", clock)),
		s.Badge(e.Category).Render(fmt.Sprintf("%-24s", e.Type)),
		s.Summary.Render(e.Summary),
	}
	if e.Delta != "" {
		parts = append(parts, s.Delta.Render(e.Delta))
	}
	return strings.Join(parts, "  ")
}
