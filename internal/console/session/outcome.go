package session

import "github.com/gostpanel/console/internal/cli/client"

// LoginOutcome is the result of a successful Login call. It is exactly one
// of TwoFactorRequired or Authenticated; callers switch on the type.
type LoginOutcome interface {
	loginOutcome()
}

// TwoFactorRequired means the password was accepted but the panel wants a
// second factor. No session was established; TempToken is only good for
// CompleteTwoFactor.
type TwoFactorRequired struct {
	TempToken string
}

// Authenticated means the session was established and persisted.
type Authenticated struct {
	Token string
	User  client.User
}

func (TwoFactorRequired) loginOutcome() {}
func (Authenticated) loginOutcome()     {}
