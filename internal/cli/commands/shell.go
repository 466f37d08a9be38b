package commands

import (
	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/console/reload"
	"github.com/gostpanel/console/internal/console/shell"
)

// runShell is swapped out by tests.
var runShell = shell.Run

// NewShellCmd creates the interactive console command
func NewShellCmd(env *Env) *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:         "shell",
		Aliases:     []string{"ui"},
		Short:       "Browse the panel in an interactive console",
		Annotations: map[string]string{AnnotationSession: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Re-executing inside the alternate screen would leave the
			// terminal in raw mode, so the reload waits until the program
			// has exited.
			deferred := reload.NewDeferred(nil)
			env.Recovery.Reloader = deferred

			m, err := runShell(cmd.Context(), shell.Options{
				Router:  env.Router,
				Session: env.Session,
				Logger:  env.Logger,
				Panel:   env.Panel.Name,
				Start:   start,
			})
			if err != nil {
				return err
			}

			if deferred.Pending() || m.Reloading() {
				env.Logger.Info().Msg("Console binary changed, restarting")
				return env.restart()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "view", "", "View to open first")
	return cmd
}
