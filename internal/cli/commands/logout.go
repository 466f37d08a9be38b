package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/console/session"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the stored session",
		Annotations: map[string]string{AnnotationSession: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wasLoggedIn := env.Session.Authenticated()
			env.Session.Logout()
			if wasLoggedIn {
				fmt.Fprintf(env.Out, "Logged out of %s\n", env.Panel.Name)
			} else {
				fmt.Fprintln(env.Out, "Not logged in")
			}
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:         "whoami",
		Short:       "Show the logged in user",
		Annotations: map[string]string{AnnotationSession: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !env.Session.Authenticated() {
				return ErrNotLoggedIn
			}
			if refresh {
				if err := env.Session.RefreshProfile(cmd.Context()); err != nil {
					return err
				}
			}
			printWhoami(env, env.Session.Snapshot())
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-fetch the profile from the panel")
	return cmd
}

func printWhoami(env *Env, snap session.Snapshot) {
	fmt.Fprintf(env.Out, "Panel:    %s (%s)\n", env.Panel.Name, env.Panel.URL)
	if snap.User == nil {
		fmt.Fprintln(env.Out, "User:     unknown (run 'gostctl whoami --refresh')")
		return
	}
	fmt.Fprintf(env.Out, "User:     %s\n", snap.User.Username)
	if snap.User.Email != "" {
		fmt.Fprintf(env.Out, "Email:    %s\n", snap.User.Email)
	}
	fmt.Fprintf(env.Out, "Role:     %s\n", roleLabel(snap.User.Role))
	fmt.Fprintf(env.Out, "Write:    %s\n", yesNo(snap.CanWrite()))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
