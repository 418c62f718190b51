package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crimson-sun/timeline/internal/session"
)

// Run shows ctrl in the terminal until the user quits or ctx is done.
// Loads completed while the view is open refresh it.
func Run(ctx context.Context, ctrl *session.Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctrl), opts...)
	ctrl.OnLoad(func(session.State) { p.Send(ReloadedMsg{}) })

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
