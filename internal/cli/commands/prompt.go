package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNonInteractive is returned when input is needed but stdin is not a
// terminal.
var ErrNonInteractive = errors.New("input required in non-interactive mode")

// Prompter asks the user for input.
type Prompter interface {
	// Prompt asks for a visible value.
	Prompt(label string, validate func(string) error) (string, error)
	// Password asks for a value without echoing it.
	Password(label string) (string, error)
}

// TerminalPrompter prompts on the controlling terminal.
type TerminalPrompter struct{}

func (TerminalPrompter) Prompt(label string, validate func(string) error) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(label))
	}

	prompt := promptui.Prompt{
		Label:    label,
		Validate: promptui.ValidateFunc(validate),
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%s prompt cancelled: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(value), nil
}

func (TerminalPrompter) Password(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(label))
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(bytePassword), nil
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// sixDigits validates a TOTP code.
func sixDigits(s string) error {
	s = strings.TrimSpace(s)
	if len(s) != 6 {
		return errors.New("code must be 6 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return errors.New("code must be 6 digits")
		}
	}
	return nil
}

// valueOr returns value, then the environment variable, then a prompt.
func valueOr(p Prompter, value, envVar, label string, secret bool) (string, error) {
	if value != "" {
		return value, nil
	}
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return v, nil
		}
	}
	if secret {
		return p.Password(label)
	}
	return p.Prompt(label, notEmpty(strings.ToLower(label)))
}
