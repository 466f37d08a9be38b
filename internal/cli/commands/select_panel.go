package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/cli/config"
	"github.com/gostpanel/console/internal/cli/panelselect"
	"github.com/gostpanel/console/internal/cli/userconfig"
)

// NewSelectPanelCmd creates the select-panel command
func NewSelectPanelCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "select-panel [name]",
		Short: "Select the panel to use for commands",
		Long: `Select the panel to use for commands.

If no name is provided, an interactive prompt will be shown.

Examples:
  $ gostctl select-panel        # Interactive selection
  $ gostctl select-panel prod   # Select by name`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var panel *config.Panel
			var err error
			if len(args) > 0 {
				panel, err = env.Config.GetPanel(args[0])
			} else {
				panel, err = panelselect.PromptPanelSelection(env.Config)
			}
			if err != nil {
				return err
			}

			if err := userconfig.SetSelectedPanel(panel.Name); err != nil {
				return fmt.Errorf("failed to save selected panel: %w", err)
			}

			fmt.Fprintf(env.Out, "Selected panel: %s (%s)\n", panel.Name, panel.URL)
			return nil
		},
	}
}

// NewAddPanelCmd creates the add-panel command
func NewAddPanelCmd(env *Env) *cobra.Command {
	var insecure bool

	cmd := &cobra.Command{
		Use:   "add-panel NAME URL",
		Short: "Add or replace a panel in console.yaml",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			panel := config.Panel{Name: args[0], URL: args[1], Insecure: insecure}
			if err := config.ValidateURL(panel.URL); err != nil {
				return err
			}

			env.Config.AddPanel(panel)
			if err := config.Save(env.ConfigPath, env.Config); err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "Saved panel %s (%s) to %s\n", panel.Name, panel.URL, env.ConfigPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&insecure, "insecure", false, "Accept self-signed TLS certificates")
	return cmd
}
