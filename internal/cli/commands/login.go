package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/cli/config"
	"github.com/gostpanel/console/internal/console/session"
	"github.com/gostpanel/console/internal/console/views"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var username, password, code string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Authenticate with a GOST panel",
		Annotations: map[string]string{AnnotationRoute: views.Login},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, env, username, password, code)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (or set GOSTCTL_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set GOSTCTL_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&code, "code", "", "Two-factor code (will prompt if the panel asks for one)")

	return cmd
}

func runLogin(cmd *cobra.Command, env *Env, username, password, code string) error {
	var err error
	username, err = valueOr(env.Prompter, username, config.EnvUsername, "Username", false)
	if err != nil {
		return err
	}
	password, err = valueOr(env.Prompter, password, config.EnvPassword, "Password", true)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Logging in to %s (%s)...\n", env.Panel.Name, env.Panel.URL)

	outcome, err := env.Session.Login(cmd.Context(), username, password)
	if err != nil {
		return loginError(err)
	}

	var result session.Authenticated
	switch o := outcome.(type) {
	case session.Authenticated:
		result = o
	case session.TwoFactorRequired:
		if code == "" {
			code, err = env.Prompter.Prompt("Two-factor code", sixDigits)
			if err != nil {
				return err
			}
		}
		result, err = env.Session.CompleteTwoFactor(cmd.Context(), o.TempToken, code)
		if err != nil {
			return loginError(err)
		}
	default:
		return fmt.Errorf("unexpected login outcome %T", outcome)
	}

	fmt.Fprintln(env.Out, "✓ Login successful!")
	fmt.Fprintf(env.Out, "  User: %s", result.User.Username)
	if result.User.Email != "" {
		fmt.Fprintf(env.Out, " (%s)", result.User.Email)
	}
	fmt.Fprintln(env.Out)
	fmt.Fprintf(env.Out, "  Role: %s\n", roleLabel(result.User.Role))
	if !result.User.PasswordChanged {
		fmt.Fprintln(env.Out, "\nYou are still using the initial password. Run 'gostctl change-password'.")
	}
	return nil
}

func loginError(err error) error {
	var authErr *session.AuthenticationError
	if errors.As(err, &authErr) && authErr.InvalidCredentials() {
		return fmt.Errorf("login failed: invalid credentials")
	}
	return fmt.Errorf("login failed: %w", err)
}

func roleLabel(role string) string {
	switch role {
	case session.RoleAdmin:
		return "Admin"
	case session.RoleViewer:
		return "Viewer (read-only)"
	case "":
		return "User"
	default:
		return role
	}
}
