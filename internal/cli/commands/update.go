package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/cli/update"
)

// NewUpdateCmd creates the update command
func NewUpdateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update gostctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := update.New(env.Out).SelfUpdate(cmd.Context(), env.Version); err != nil {
				return fmt.Errorf("update failed: %w", err)
			}
			return nil
		},
	}
}

// NewVersionCmd creates the version command
func NewVersionCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "gostctl version %s\n", env.Version)
		},
	}
}
