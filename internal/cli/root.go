package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/cli/commands"
	"github.com/gostpanel/console/internal/cli/update"
)

var version = "dev" // Will be set during build

// updateCheckTimeout bounds the release lookup done before each command.
const updateCheckTimeout = 2 * time.Second

// NewRootCmd builds the gostctl command tree around env.
func NewRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gostctl",
		Short: "gostctl - Terminal console for GOST panels",
		Long: `gostctl - Manage a GOST proxy panel from the terminal.

Sign in once and browse nodes, clients, forwards, tunnels and the rest of
the panel from the command line or the interactive shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip update check for the update and version commands
			if env.Version != "dev" && cmd.Name() != "update" && cmd.Name() != "version" {
				ctx, cancel := context.WithTimeout(cmd.Context(), updateCheckTimeout)
				update.New(env.Err).PrintUpdateNotification(ctx, env.Version)
				cancel()
			}
			return env.PreRun(cmd, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&env.ConfigPath, "config", "", "Path to console.yaml")
	flags.StringVar(&env.PanelName, "panel", "", "Panel name from console.yaml")
	flags.StringVar(&env.PanelURL, "url", "", "Panel URL, overrides --panel")
	flags.StringVar(&env.StoreBackend, "store", "", "Session store: file, keyring or memory")

	rootCmd.SetIn(env.In)
	rootCmd.SetOut(env.Out)
	rootCmd.SetErr(env.Err)

	rootCmd.AddCommand(commands.NewVersionCmd(env))
	rootCmd.AddCommand(commands.NewUpdateCmd(env))
	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewRegisterCmd(env))
	rootCmd.AddCommand(commands.NewVerifyEmailCmd(env))
	rootCmd.AddCommand(commands.NewForgotPasswordCmd(env))
	rootCmd.AddCommand(commands.NewResetPasswordCmd(env))
	rootCmd.AddCommand(commands.NewChangePasswordCmd(env))
	rootCmd.AddCommand(commands.NewSelectPanelCmd(env))
	rootCmd.AddCommand(commands.NewAddPanelCmd(env))
	rootCmd.AddCommand(commands.NewOpenCmd(env))
	rootCmd.AddCommand(commands.NewShellCmd(env))
	rootCmd.AddCommand(commands.NewViewCmds(env)...)

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCmd(commands.NewEnv(version))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
