package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"parsons-cli/internal/session"
)

type Options struct {
	NoColor bool
}

// Run drives the session interactively until the user quits. The session must have been
// built with geo as its geometry so keyboard motion and mouse drops agree with the screen.
func Run(ctx context.Context, sess *session.Session, geo *Geometry, opts Options) error {
	applyThemePreference()
	applyColorProfilePreference(opts.NoColor)
	m := newScreenModel(ctx, sess, geo)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx)).Run()
	return err
}
