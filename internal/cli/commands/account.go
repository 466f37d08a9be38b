package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/views"
)

const minPasswordLength = 6

// NewRegisterCmd creates the register command
func NewRegisterCmd(env *Env) *cobra.Command {
	var req client.RegisterRequest

	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account on the panel",
		Annotations: map[string]string{AnnotationRoute: views.Register},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Username, err = valueOr(env.Prompter, req.Username, "", "Username", false); err != nil {
				return err
			}
			if req.Email, err = valueOr(env.Prompter, req.Email, "", "Email", false); err != nil {
				return err
			}
			if req.Password, err = newPassword(env, req.Password); err != nil {
				return err
			}

			resp, err := env.Client.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			printMessage(env, resp, "Account created. Check your mail to verify the address.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (will prompt if not provided)")
	return cmd
}

// NewVerifyEmailCmd creates the verify-email command
func NewVerifyEmailCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:         "verify-email TOKEN",
		Short:       "Confirm an email address",
		Annotations: map[string]string{AnnotationRoute: views.VerifyEmail},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := env.Client.VerifyEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			printMessage(env, resp, "Email verified.")
			return nil
		},
	}
}

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:         "forgot-password EMAIL",
		Short:       "Request a password reset mail",
		Annotations: map[string]string{AnnotationRoute: views.ForgotPassword},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := env.Client.ForgotPassword(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("password reset request failed: %w", err)
			}
			printMessage(env, resp, "If the address is registered, a reset mail is on its way.")
			return nil
		},
	}
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(env *Env) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:         "reset-password TOKEN",
		Short:       "Set a new password with a reset token",
		Annotations: map[string]string{AnnotationRoute: views.ResetPassword},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := newPassword(env, password)
			if err != nil {
				return err
			}
			resp, err := env.Client.ResetPassword(cmd.Context(), args[0], pw)
			if err != nil {
				return fmt.Errorf("password reset failed: %w", err)
			}
			printMessage(env, resp, "Password reset. Run 'gostctl login'.")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (will prompt if not provided)")
	return cmd
}

// NewChangePasswordCmd creates the change-password command
func NewChangePasswordCmd(env *Env) *cobra.Command {
	var oldPassword, password string

	cmd := &cobra.Command{
		Use:         "change-password",
		Short:       "Change the password of the logged in user",
		Annotations: map[string]string{AnnotationRoute: views.ChangePassword},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if oldPassword, err = valueOr(env.Prompter, oldPassword, "", "Current password", true); err != nil {
				return err
			}
			pw, err := newPassword(env, password)
			if err != nil {
				return err
			}

			resp, err := env.Client.ChangePassword(cmd.Context(), oldPassword, pw)
			if err != nil {
				return fmt.Errorf("password change failed: %w", err)
			}
			printMessage(env, resp, "Password changed.")

			if err := env.Session.RefreshProfile(cmd.Context()); err != nil {
				env.Logger.Warn().Err(err).Msg("Failed to refresh profile after password change")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPassword, "old-password", "", "Current password (will prompt if not provided)")
	cmd.Flags().StringVar(&password, "new-password", "", "New password (will prompt if not provided)")
	return cmd
}

// newPassword returns value or prompts twice for a new password.
func newPassword(env *Env, value string) (string, error) {
	if value == "" {
		first, err := env.Prompter.Password("New password")
		if err != nil {
			return "", err
		}
		second, err := env.Prompter.Password("Repeat new password")
		if err != nil {
			return "", err
		}
		if first != second {
			return "", errors.New("passwords do not match")
		}
		value = first
	}
	if len(value) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return value, nil
}

func printMessage(env *Env, resp *client.MessageResponse, fallback string) {
	if resp != nil && resp.Message != "" {
		fmt.Fprintf(env.Out, "✓ %s\n", resp.Message)
		return
	}
	fmt.Fprintf(env.Out, "✓ %s\n", fallback)
}
