package shell

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive console and blocks until the user quits. The
// returned Model reports whether the shell stopped to reload.
func Run(ctx context.Context, opts Options) (Model, error) {
	if opts.Router == nil || opts.Session == nil {
		return Model{}, fmt.Errorf("shell needs a router and a session")
	}

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Model{}, fmt.Errorf("console exited: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Model{}, fmt.Errorf("unexpected model type %T", final)
	}
	opts.Logger.Debug().Bool("reloading", m.reloading).Msg("Console closed")
	return m, nil
}
