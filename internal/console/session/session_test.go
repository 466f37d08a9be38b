package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/store"
)

// fakeAuth answers the panel's auth endpoints from canned values.
type fakeAuth struct {
	loginResp *client.LoginResponse
	loginErr  error
	verify    *client.LoginResponse
	verifyErr error
	me        *client.User
	meErr     error

	loginCalls int
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*client.LoginResponse, error) {
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*client.LoginResponse, error) {
	return f.verify, f.verifyErr
}

func (f *fakeAuth) Me(ctx context.Context) (*client.User, error) {
	return f.me, f.meErr
}

// failingStore fails Set for one key.
type failingStore struct {
	*store.Memory
	failKey string
}

func (s *failingStore) Set(key, value string) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.Memory.Set(key, value)
}

func adminLogin() *client.LoginResponse {
	return &client.LoginResponse{
		Token: "T1",
		User:  &client.User{ID: 1, Username: "alice", Role: RoleAdmin, PasswordChanged: true},
	}
}

func newManager(st store.Store, auth Authenticator) *Manager {
	return New(st, auth, zerolog.Nop())
}

func TestCapabilityFlags(t *testing.T) {
	tests := []struct {
		role     string
		isAdmin  bool
		isViewer bool
		canWrite bool
	}{
		{role: "admin", isAdmin: true, isViewer: false, canWrite: true},
		{role: "viewer", isAdmin: false, isViewer: true, canWrite: false},
		{role: "user", isAdmin: false, isViewer: false, canWrite: true},
		{role: "operator", isAdmin: false, isViewer: false, canWrite: true},
		{role: "", isAdmin: false, isViewer: false, canWrite: true},
		{role: "Admin", isAdmin: false, isViewer: false, canWrite: true},
	}

	for _, tt := range tests {
		t.Run("role="+tt.role, func(t *testing.T) {
			user := &client.User{Role: tt.role}
			assert.Equal(t, tt.isAdmin, IsAdmin(user), "IsAdmin")
			assert.Equal(t, tt.isViewer, IsViewer(user), "IsViewer")
			assert.Equal(t, tt.canWrite, CanWrite(user), "CanWrite")
		})
	}

	t.Run("no user", func(t *testing.T) {
		assert.False(t, IsAdmin(nil))
		assert.False(t, IsViewer(nil))
		assert.False(t, CanWrite(nil))
	})
}

func TestLogin_Authenticated(t *testing.T) {
	st := store.NewMemory()
	m := newManager(st, &fakeAuth{loginResp: adminLogin()})

	outcome, err := m.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)

	authenticated, ok := outcome.(Authenticated)
	require.True(t, ok, "expected Authenticated, got %T", outcome)
	assert.Equal(t, "T1", authenticated.Token)
	assert.Equal(t, "alice", authenticated.User.Username)

	token, ok, err := st.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T1", token)

	raw, ok, err := st.Get(UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	var stored client.User
	require.NoError(t, json.Unmarshal([]byte(raw), &stored), "stored user must be parsable")
	assert.Equal(t, "alice", stored.Username)

	assert.True(t, m.IsAdmin())
	assert.True(t, m.CanWrite())
	assert.False(t, m.IsViewer())
	assert.Equal(t, "T1", m.Token())
}

func TestLogin_TwoFactorRequired(t *testing.T) {
	st := store.NewMemory()
	m := newManager(st, &fakeAuth{loginResp: &client.LoginResponse{Requires2FA: true, TempToken: "X"}})

	outcome, err := m.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err, "a 2FA challenge is not a failure")

	pending, ok := outcome.(TwoFactorRequired)
	require.True(t, ok, "expected TwoFactorRequired, got %T", outcome)
	assert.Equal(t, "X", pending.TempToken)

	assert.Empty(t, m.Token())
	assert.Nil(t, m.User())

	_, ok, _ = st.Get(TokenKey)
	assert.False(t, ok, "2FA challenge must not write the store")
	_, ok, _ = st.Get(UserKey)
	assert.False(t, ok, "2FA challenge must not write the store")
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	st := store.NewMemory()
	auth := &fakeAuth{loginResp: adminLogin()}
	m := newManager(st, auth)

	_, err := m.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)

	auth.loginResp = nil
	auth.loginErr = &client.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}

	_, err = m.Login(context.Background(), "mallory", "wrong")
	require.Error(t, err)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, authErr.InvalidCredentials())

	var apiErr *client.APIError
	assert.True(t, errors.As(err, &apiErr), "cause should stay reachable")

	assert.Equal(t, "T1", m.Token(), "previous session must survive a failed login")
	token, _, _ := st.Get(TokenKey)
	assert.Equal(t, "T1", token)
}

func TestLogin_TransportFailure(t *testing.T) {
	m := newManager(store.NewMemory(), &fakeAuth{loginErr: errors.New("connection refused")})

	_, err := m.Login(context.Background(), "alice", "pw")
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Zero(t, authErr.StatusCode)
	assert.False(t, authErr.InvalidCredentials())
	assert.False(t, m.Authenticated())
}

func TestLogin_UnrecognizedResponse(t *testing.T) {
	st := store.NewMemory()
	m := newManager(st, &fakeAuth{loginResp: &client.LoginResponse{Token: "T1"}})

	_, err := m.Login(context.Background(), "alice", "pw")
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.False(t, m.Authenticated())

	_, ok, _ := st.Get(TokenKey)
	assert.False(t, ok)
}

func TestLogin_StoreFailureRollsBack(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), failKey: UserKey}
	m := newManager(st, &fakeAuth{loginResp: adminLogin()})

	_, err := m.Login(context.Background(), "alice", "pw")
	require.Error(t, err)

	assert.False(t, m.Authenticated(), "memory must not be committed")
	assert.Nil(t, m.User())
	_, ok, _ := st.Get(TokenKey)
	assert.False(t, ok, "token write must be rolled back")
}

func TestLogin_StoreFailureRestoresPreviousToken(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set(TokenKey, "OLD"))
	st := &failingStore{Memory: mem, failKey: UserKey}
	m := newManager(st, &fakeAuth{loginResp: adminLogin()})

	_, err := m.Login(context.Background(), "alice", "pw")
	require.Error(t, err)

	token, ok, _ := st.Get(TokenKey)
	assert.True(t, ok)
	assert.Equal(t, "OLD", token)
}

func TestCompleteTwoFactor(t *testing.T) {
	st := store.NewMemory()
	auth := &fakeAuth{
		loginResp: &client.LoginResponse{Requires2FA: true, TempToken: "X"},
		verify: &client.LoginResponse{
			Token: "T2",
			User:  &client.User{ID: 2, Username: "bob", Role: RoleViewer},
		},
	}
	m := newManager(st, auth)

	outcome, err := m.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)
	pending := outcome.(TwoFactorRequired)

	authenticated, err := m.CompleteTwoFactor(context.Background(), pending.TempToken, "123456")
	require.NoError(t, err)
	assert.Equal(t, "T2", authenticated.Token)

	assert.Equal(t, "T2", m.Token())
	assert.True(t, m.IsViewer())
	assert.False(t, m.CanWrite())

	token, _, _ := st.Get(TokenKey)
	assert.Equal(t, "T2", token)
}

func TestCompleteTwoFactor_InvalidCode(t *testing.T) {
	m := newManager(store.NewMemory(), &fakeAuth{
		verifyErr: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid 2FA code"},
	})

	_, err := m.CompleteTwoFactor(context.Background(), "X", "000000")
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.False(t, m.Authenticated())
}

func TestLogout(t *testing.T) {
	st := store.NewMemory()
	m := newManager(st, &fakeAuth{loginResp: adminLogin()})

	_, err := m.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	m.Logout()

	_, ok, _ := st.Get(TokenKey)
	assert.False(t, ok)
	_, ok, _ = st.Get(UserKey)
	assert.False(t, ok)

	assert.Empty(t, m.Token())
	assert.Nil(t, m.User())
	assert.False(t, m.CanWrite())
	assert.False(t, m.IsAdmin())
	assert.False(t, m.IsViewer())

	// Idempotent.
	m.Logout()
	assert.False(t, m.Authenticated())
}

func TestRehydrate(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(TokenKey, "T1"))
	require.NoError(t, st.Set(UserKey, `{"id":1,"username":"alice","role":"viewer"}`))

	m := newManager(st, &fakeAuth{})
	m.Rehydrate()

	assert.Equal(t, "T1", m.Token())
	require.NotNil(t, m.User())
	assert.Equal(t, "alice", m.User().Username)
	assert.True(t, m.IsViewer())
}

func TestRehydrate_MalformedUser(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(TokenKey, "T1"))
	require.NoError(t, st.Set(UserKey, "{not json"))

	m := newManager(st, &fakeAuth{})
	require.NotPanics(t, m.Rehydrate)

	assert.Nil(t, m.User(), "unparsable user is treated as absent")
	assert.Equal(t, "T1", m.Token(), "the token is loaded as-is")
	assert.False(t, m.CanWrite())
}

func TestRehydrate_UserWithoutToken(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(UserKey, `{"id":1,"username":"alice","role":"admin"}`))

	m := newManager(st, &fakeAuth{})
	m.Rehydrate()

	assert.Empty(t, m.Token())
	require.NotNil(t, m.User())
	assert.True(t, m.IsAdmin())
}

func TestRehydrate_Empty(t *testing.T) {
	m := newManager(store.NewMemory(), &fakeAuth{})
	m.Rehydrate()
	assert.False(t, m.Authenticated())
	assert.Nil(t, m.User())
}

func TestDecodeUser_MalformedIsSentinel(t *testing.T) {
	_, err := decodeUser("[1,2")
	assert.ErrorIs(t, err, ErrMalformedSession)
}

func TestRefreshProfile(t *testing.T) {
	st := store.NewMemory()
	auth := &fakeAuth{
		loginResp: adminLogin(),
		me:        &client.User{ID: 1, Username: "alice", Role: RoleViewer, EmailVerified: true},
	}
	m := newManager(st, auth)

	assert.ErrorIs(t, m.RefreshProfile(context.Background()), ErrNotAuthenticated)

	_, err := m.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.True(t, m.IsAdmin())

	require.NoError(t, m.RefreshProfile(context.Background()))
	assert.False(t, m.IsAdmin(), "flags follow the replaced snapshot")
	assert.True(t, m.IsViewer())
	assert.True(t, m.User().EmailVerified)

	raw, _, _ := st.Get(UserKey)
	assert.Contains(t, raw, `"role":"viewer"`)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := newManager(store.NewMemory(), &fakeAuth{loginResp: adminLogin()})
	_, err := m.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	user := m.User()
	user.Role = RoleViewer

	assert.True(t, m.IsAdmin(), "mutating a returned user must not change the session")
}
