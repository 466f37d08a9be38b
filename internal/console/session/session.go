// Package session owns the console's authenticated state: the bearer token,
// the user snapshot, and the capability flags derived from the user's role.
//
// A Manager is the only writer of both the in-memory session and its durable
// mirror in a store.Store. Readers (the navigation guard, views) only call
// its accessors.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/store"
)

// Keys under which the session is persisted. No other keys are touched.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Recognized roles. Any other role is the standard tier.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Authenticator is the panel's authentication surface.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*client.LoginResponse, error)
	VerifyTwoFactor(ctx context.Context, tempToken, code string) (*client.LoginResponse, error)
	Me(ctx context.Context) (*client.User, error)
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	Token string
	User  *client.User
}

// Authenticated reports whether the snapshot carries a token.
func (s Snapshot) Authenticated() bool { return s.Token != "" }

func (s Snapshot) IsAdmin() bool  { return IsAdmin(s.User) }
func (s Snapshot) IsViewer() bool { return IsViewer(s.User) }
func (s Snapshot) CanWrite() bool { return CanWrite(s.User) }

// IsAdmin reports whether u has the admin role. False for a nil user.
func IsAdmin(u *client.User) bool {
	return u != nil && u.Role == RoleAdmin
}

// IsViewer reports whether u has the read-only viewer role. False for a nil user.
func IsViewer(u *client.User) bool {
	return u != nil && u.Role == RoleViewer
}

// CanWrite reports whether u may see write affordances: every role except
// viewer. False for a nil user.
func CanWrite(u *client.User) bool {
	return u != nil && u.Role != RoleViewer
}

// Manager holds the in-memory session and keeps the store in sync with it.
type Manager struct {
	mu     sync.RWMutex
	token  string
	user   *client.User
	store  store.Store
	auth   Authenticator
	logger zerolog.Logger
}

// New returns an empty (unauthenticated) Manager. Call Rehydrate to load a
// persisted session.
func New(st store.Store, auth Authenticator, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  st,
		auth:   auth,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Rehydrate loads the session from the store. It never fails: unreadable or
// unparsable data is logged and treated as absent. A token without a
// parsable user (or the reverse) is loaded as found.
func (m *Manager) Rehydrate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, _, err := m.store.Get(TokenKey)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read stored session token, starting logged out")
		token = ""
	}

	var user *client.User
	raw, ok, err := m.store.Get(UserKey)
	switch {
	case err != nil:
		m.logger.Warn().Err(err).Msg("Failed to read stored user, treating as absent")
	case ok:
		user, err = decodeUser(raw)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Stored user is not parsable, treating as absent")
			user = nil
		}
	}

	m.token = token
	m.user = user

	m.logger.Debug().
		Bool("token", token != "").
		Bool("user", user != nil).
		Msg("Session rehydrated")
}

func decodeUser(raw string) (*client.User, error) {
	var user *client.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	return user, nil
}

// Login sends credentials to the panel. A 2FA challenge is returned as
// TwoFactorRequired without touching the session. On success the token and
// user are written to the store together and then committed to memory.
// Panel or transport failures come back as *AuthenticationError and leave
// the session unchanged.
func (m *Manager) Login(ctx context.Context, username, password string) (LoginOutcome, error) {
	resp, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, newAuthenticationError(err)
	}
	return m.accept(resp)
}

// CompleteTwoFactor finishes a login that returned TwoFactorRequired.
func (m *Manager) CompleteTwoFactor(ctx context.Context, tempToken, code string) (Authenticated, error) {
	resp, err := m.auth.VerifyTwoFactor(ctx, tempToken, code)
	if err != nil {
		return Authenticated{}, newAuthenticationError(err)
	}
	if resp.Requires2FA {
		return Authenticated{}, &AuthenticationError{Err: errors.New("panel asked for another second factor")}
	}

	outcome, err := m.accept(resp)
	if err != nil {
		return Authenticated{}, err
	}
	return outcome.(Authenticated), nil
}

func (m *Manager) accept(resp *client.LoginResponse) (LoginOutcome, error) {
	if resp.Requires2FA {
		if resp.TempToken == "" {
			return nil, &AuthenticationError{Err: errors.New("panel requested 2FA without a temp token")}
		}
		m.logger.Info().Msg("Second factor required")
		return TwoFactorRequired{TempToken: resp.TempToken}, nil
	}

	if resp.Token == "" || resp.User == nil {
		return nil, &AuthenticationError{Err: errors.New("panel response has neither a token nor a 2FA challenge")}
	}

	if err := m.commit(resp.Token, *resp.User); err != nil {
		return nil, err
	}

	m.logger.Info().
		Uint("user_id", resp.User.ID).
		Str("username", resp.User.Username).
		Str("role", resp.User.Role).
		Msg("Logged in")

	return Authenticated{Token: resp.Token, User: *resp.User}, nil
}

// commit persists token and user as one unit. If the user cannot be
// written the previous token is put back and memory is left alone.
func (m *Manager) commit(token string, user client.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prevToken, hadToken, _ := m.store.Get(TokenKey)

	if err := m.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	if err := m.store.Set(UserKey, string(data)); err != nil {
		m.rollbackToken(prevToken, hadToken)
		return fmt.Errorf("failed to persist session user: %w", err)
	}

	m.token = token
	m.user = &user
	return nil
}

func (m *Manager) rollbackToken(prev string, had bool) {
	var err error
	if had {
		err = m.store.Set(TokenKey, prev)
	} else {
		err = m.store.Remove(TokenKey)
	}
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to roll back session token")
	}
}

// Logout clears the session in memory and in the store. Calling it while
// logged out is a no-op. Store failures are logged, not returned.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasAuthenticated := m.token != ""
	m.token = ""
	m.user = nil

	for _, key := range []string{TokenKey, UserKey} {
		if err := m.store.Remove(key); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Failed to remove stored session key")
		}
	}

	if wasAuthenticated {
		m.logger.Info().Msg("Logged out")
	}
}

// RefreshProfile re-fetches the current user and replaces the snapshot
// wholesale. It returns ErrNotAuthenticated when logged out, or when the
// session changed while the request was in flight.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh profile: %w", err)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != token {
		return ErrNotAuthenticated
	}
	if err := m.store.Set(UserKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist session user: %w", err)
	}
	replaced := *user
	m.user = &replaced
	return nil
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the user snapshot, or nil when absent.
func (m *Manager) User() *client.User {
	return m.Snapshot().User
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{Token: m.token}
	if m.user != nil {
		user := *m.user
		snap.User = &user
	}
	return snap
}

// Authenticated reports whether a token is held.
func (m *Manager) Authenticated() bool { return m.Token() != "" }

// IsAdmin, IsViewer and CanWrite are recomputed from the current user on
// every call.
func (m *Manager) IsAdmin() bool  { return m.Snapshot().IsAdmin() }
func (m *Manager) IsViewer() bool { return m.Snapshot().IsViewer() }
func (m *Manager) CanWrite() bool { return m.Snapshot().CanWrite() }
