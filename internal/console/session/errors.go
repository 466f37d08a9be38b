package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gostpanel/console/internal/cli/client"
)

// ErrMalformedSession marks stored session data that could not be parsed.
// Rehydrate recovers from it by treating the session as absent.
var ErrMalformedSession = errors.New("malformed session data")

// ErrNotAuthenticated is returned by operations that need a session token.
var ErrNotAuthenticated = errors.New("not logged in")

// AuthenticationError is returned when the panel rejects credentials or
// cannot be reached. The session is left as it was.
type AuthenticationError struct {
	// StatusCode is the panel's HTTP status, or 0 when the request never
	// got an answer.
	StatusCode int
	Err        error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// InvalidCredentials reports whether the panel answered 401.
func (e *AuthenticationError) InvalidCredentials() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func newAuthenticationError(err error) *AuthenticationError {
	authErr := &AuthenticationError{Err: err}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		authErr.StatusCode = apiErr.StatusCode
	}
	return authErr
}
