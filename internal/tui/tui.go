// Package tui is an interactive terminal viewer for scan results.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/newhook/harvest/internal/runner"
)

// Run shows results in a full-screen viewer until the user quits or ctx is
// cancelled. Keys are read from the terminal, so results may come from a
// piped standard input.
func Run(ctx context.Context, results []runner.Result) error {
	p := tea.NewProgram(New(results), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithInputTTY())

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("error running viewer: %w", err)
	}
	return nil
}
