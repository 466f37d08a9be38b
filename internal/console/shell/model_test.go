package shell

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/router"
	"github.com/gostpanel/console/internal/console/session"
	"github.com/gostpanel/console/internal/console/store"
	"github.com/gostpanel/console/internal/console/views"
)

type fakeAuth struct {
	twoFactor bool
	failLogin bool
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*client.LoginResponse, error) {
	if f.failLogin {
		return nil, &client.APIError{StatusCode: 401, Message: "invalid credentials"}
	}
	if f.twoFactor {
		return &client.LoginResponse{Requires2FA: true, TempToken: "temp-1"}, nil
	}
	return &client.LoginResponse{Token: "tok", User: &client.User{ID: 1, Username: username, Role: session.RoleAdmin}}, nil
}

func (f *fakeAuth) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*client.LoginResponse, error) {
	if tempToken != "temp-1" || code != "123456" {
		return nil, &client.APIError{StatusCode: 401, Message: "invalid code"}
	}
	return &client.LoginResponse{Token: "tok", User: &client.User{ID: 1, Username: "alice", Role: session.RoleViewer}}, nil
}

func (f *fakeAuth) Me(ctx context.Context) (*client.User, error) {
	return &client.User{ID: 1, Username: "alice", Role: session.RoleAdmin}, nil
}

type fixture struct {
	model   Model
	session *session.Manager
	router  *router.Router
	loads   map[string]*atomic.Int32
	fail    map[string]error
}

func newFixture(t *testing.T, auth *fakeAuth, loggedIn bool) *fixture {
	t.Helper()

	st := store.NewMemory()
	if loggedIn {
		require.NoError(t, st.Set(session.TokenKey, "tok"))
		require.NoError(t, st.Set(session.UserKey, `{"id":1,"username":"alice","role":"admin"}`))
	}
	mgr := session.New(st, auth, zerolog.Nop())
	mgr.Rehydrate()

	f := &fixture{session: mgr, loads: map[string]*atomic.Int32{}, fail: map[string]error{}}

	var routes []router.Route
	for _, name := range append(append([]string(nil), views.PublicRoutes...), views.ProtectedRoutes...) {
		name := name
		counter := &atomic.Int32{}
		f.loads[name] = counter
		routes = append(routes, router.Route{
			Name: name,
			Path: "/" + name,
			Load: func(ctx context.Context) (router.Page, error) {
				counter.Add(1)
				if err := f.fail[name]; err != nil {
					return router.Page{}, err
				}
				return router.Page{Title: views.Title(name), Body: "body of " + name}, nil
			},
		})
	}
	f.router = router.New(routes)
	f.router.BeforeEach(router.Guard(views.PublicRoutes, views.Login, mgr.Token))

	f.model = New(Options{Router: f.router, Session: mgr, Panel: "test", Logger: zerolog.Nop()})
	// A blinking cursor schedules timed commands.
	f.model.cursorMode = cursor.CursorStatic
	return f
}

// send runs msg through Update and then drains the commands it produces,
// feeding their messages back in, the way the program loop would.
func (f *fixture) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 && len(queue) < 50 {
		next := queue[0]
		queue = queue[1:]

		updated, cmd := f.model.Update(next)
		f.model = updated.(Model)
		queue = append(queue, run(cmd)...)
	}
}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(c)...)
		}
		return out
	case navigatedMsg, loginMsg, twoFactorMsg:
		return []tea.Msg{msg}
	default:
		// Cursor and quit messages.
		return nil
	}
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	f.send(t, tea.WindowSizeMsg{Width: 120, Height: 40})
	for _, msg := range run(f.model.Init()) {
		f.send(t, msg)
	}
}

func typeText(f *fixture, t *testing.T, s string) {
	for _, r := range s {
		f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestInit_LoggedInShowsDashboard(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.init(t)

	assert.Equal(t, modeBrowse, f.model.mode)
	assert.Equal(t, views.Dashboard, f.model.current)
	assert.Contains(t, f.model.View(), "body of dashboard")
	assert.Contains(t, f.model.View(), "alice (admin)")
}

func TestInit_LoggedOutShowsLoginForm(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, false)
	f.init(t)

	assert.Equal(t, modeLogin, f.model.mode)
	assert.Equal(t, int32(0), f.loads[views.Dashboard].Load(), "protected loader must not run")
	assert.Contains(t, f.model.View(), "Please sign in to continue.")
}

func TestLogin_LandsOnDashboard(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, false)
	f.model.opts.Start = views.Nodes
	f.init(t)
	require.Equal(t, modeLogin, f.model.mode)

	typeText(f, t, "alice")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	typeText(f, t, "secret")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeBrowse, f.model.mode)
	assert.Equal(t, views.Dashboard, f.model.current, "no return-to after login")
	assert.True(t, f.session.Authenticated())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, &fakeAuth{failLogin: true}, false)
	f.init(t)

	typeText(f, t, "alice")
	f.send(t, tea.KeyMsg{Type: tea.KeyTab})
	typeText(f, t, "wrong")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeLogin, f.model.mode)
	assert.Equal(t, "Invalid credentials.", f.model.form.err)
	assert.False(t, f.session.Authenticated())
}

func TestLogin_EmptyFields(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, false)
	f.init(t)

	f.send(t, tea.KeyMsg{Type: tea.KeyTab})
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "Username and password are required.", f.model.form.err)
}

func TestLogin_TwoFactor(t *testing.T) {
	f := newFixture(t, &fakeAuth{twoFactor: true}, false)
	f.init(t)

	typeText(f, t, "alice")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	typeText(f, t, "secret")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, stageCode, f.model.form.stage)
	assert.False(t, f.session.Authenticated(), "temp token is not a session")
	assert.Contains(t, f.model.View(), "authenticator app")

	typeText(f, t, "12")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Code must be 6 digits.", f.model.form.err)

	typeText(f, t, "3456")
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeBrowse, f.model.mode)
	assert.True(t, f.session.IsViewer())
	assert.Contains(t, f.model.View(), "read-only")
}

func TestBrowse_MoveAndOpen(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.init(t)

	f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, f.model.cursor)
	f.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, views.ProtectedRoutes[1], f.model.current)
	assert.Contains(t, f.model.View(), "body of "+views.ProtectedRoutes[1])

	f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, f.model.cursor)
}

func TestBrowse_Refresh(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.init(t)
	before := f.loads[views.Dashboard].Load()

	f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

	assert.Equal(t, before+1, f.loads[views.Dashboard].Load())
}

func TestBrowse_LogoutReturnsToLogin(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.init(t)

	f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})

	assert.False(t, f.session.Authenticated())
	assert.Equal(t, modeLogin, f.model.mode)
}

func TestBrowse_LoadErrorShown(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.fail[views.Dashboard] = errors.New("panel unreachable")
	f.init(t)

	assert.Contains(t, f.model.View(), "panel unreachable")
	assert.Equal(t, modeBrowse, f.model.mode)
}

func TestBrowse_StaleBundleQuitsToReload(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	var reloads int
	recovery := &router.Recovery{
		Reloader: router.ReloaderFunc(func() error { reloads++; return nil }),
		Logger:   zerolog.Nop(),
	}
	recovery.Install(f.router)
	f.fail[views.Dashboard] = router.ErrStaleBundle
	f.init(t)

	assert.True(t, f.model.Reloading())
	assert.Equal(t, 1, reloads)
}

func TestQuit(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.init(t)

	_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestMenuListsProtectedRoutes(t *testing.T) {
	f := newFixture(t, &fakeAuth{}, true)
	f.init(t)

	view := f.model.View()
	for _, name := range views.ProtectedRoutes {
		assert.True(t, strings.Contains(view, views.Title(name)), "menu should list %s", name)
	}
}
