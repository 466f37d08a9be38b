package views

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/router"
	"github.com/gostpanel/console/internal/console/session"
	"github.com/gostpanel/console/internal/console/store"
)

// mockPanel serves canned JSON per path and counts requests.
func mockPanel(t *testing.T, bodies map[string]string) (*client.Client, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "not found"}`))
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return client.New(server.URL, client.WithTokenSource(func() string { return "T1" })), &calls
}

// sessionAs returns a manager rehydrated with a user of role.
func sessionAs(t *testing.T, role string) *session.Manager {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.Set(session.TokenKey, "T1"))
	require.NoError(t, st.Set(session.UserKey, `{"id":1,"username":"alice","role":"`+role+`","password_changed":true}`))
	m := session.New(st, nil, zerolog.Nop())
	m.Rehydrate()
	return m
}

func load(t *testing.T, d Deps, name string) (router.Page, error) {
	t.Helper()
	for _, route := range Routes(d) {
		if route.Name == name {
			return route.Load(context.Background())
		}
	}
	t.Fatalf("route %s not found", name)
	return router.Page{}, nil
}

type staleWatcher struct{ err error }

func (s staleWatcher) Check() error { return s.err }

func TestRouteTable(t *testing.T) {
	routes := Routes(Deps{})
	require.Len(t, routes, len(PublicRoutes)+len(ProtectedRoutes))

	names := make(map[string]string)
	for _, r := range routes {
		names[r.Name] = r.Path
		assert.NotNil(t, r.Load, r.Name)
		assert.Equal(t, "/"+r.Name, r.Path)
	}
	for _, name := range append(append([]string{}, PublicRoutes...), ProtectedRoutes...) {
		assert.Contains(t, names, name)
	}
	assert.Len(t, PublicRoutes, 5)
	assert.Len(t, ProtectedRoutes, 12)
}

func TestGuardedTable(t *testing.T) {
	token := ""
	r := router.New(Routes(Deps{}))
	r.BeforeEach(router.Guard(PublicRoutes, Login, func() string { return token }))

	for _, name := range ProtectedRoutes {
		nav, err := r.Navigate(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, Login, nav.Route.Name, name)
	}
	for _, name := range PublicRoutes {
		nav, err := r.Navigate(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, name, nav.Route.Name)
		assert.NotEmpty(t, nav.Page.Body)
	}
}

func TestNodesView(t *testing.T) {
	api, _ := mockPanel(t, map[string]string{
		"/api/nodes": `{"data": [
			{"id": 1, "name": "edge-1", "host": "10.0.0.1", "port": 8443, "protocol": "socks5", "status": "online",
			 "connections": 3, "traffic_in": 2048, "traffic_out": 1024, "tags": [{"id": 1, "name": "eu"}]}
		], "total": 1, "page": 1, "page_size": 20}`,
	})

	page, err := load(t, Deps{API: api, Session: sessionAs(t, "admin")}, Nodes)
	require.NoError(t, err)
	assert.Equal(t, "Nodes", page.Title)
	assert.Contains(t, page.Body, "edge-1")
	assert.Contains(t, page.Body, "10.0.0.1:8443")
	assert.Contains(t, page.Body, "3.0 KiB")
	assert.Contains(t, page.Body, "eu")
	assert.Contains(t, page.Body, "1 of 1 (page 1)")
	assert.NotContains(t, page.Body, readOnlyNote)
}

func TestViewerGetsReadOnlyNote(t *testing.T) {
	api, _ := mockPanel(t, map[string]string{
		"/api/tunnels": `[{"id": 4, "name": "t1", "entry_node_id": 1, "exit_node_id": 2, "listen_port": 9000, "enabled": true,
			"entry_node": {"id": 1, "name": "in"}}]`,
	})

	page, err := load(t, Deps{API: api, Session: sessionAs(t, "viewer")}, Tunnels)
	require.NoError(t, err)
	assert.Contains(t, page.Body, "in")
	assert.Contains(t, page.Body, "2", "exit node falls back to its id")
	assert.Contains(t, page.Body, readOnlyNote)
}

func TestUsersViewNeedsAdmin(t *testing.T) {
	api, calls := mockPanel(t, map[string]string{
		"/api/users": `{"data": [{"id": 2, "username": "bob", "role": "viewer", "email_verified": true}], "total": 1, "page": 1}`,
	})

	page, err := load(t, Deps{API: api, Session: sessionAs(t, "user")}, Users)
	require.NoError(t, err)
	assert.Contains(t, page.Body, "admin role")
	assert.Zero(t, *calls, "non-admins do not query the user list")

	page, err = load(t, Deps{API: api, Session: sessionAs(t, "admin")}, Users)
	require.NoError(t, err)
	assert.Contains(t, page.Body, "bob")
	assert.Equal(t, 1, *calls)
}

func TestDashboardView(t *testing.T) {
	api, _ := mockPanel(t, map[string]string{
		"/api/stats": `{"total_nodes": 4, "online_nodes": 3, "total_clients": 2, "online_clients": 1,
			"total_users": 5, "total_traffic_in": 1073741824, "total_traffic_out": 0, "total_connections": 9}`,
	})

	page, err := load(t, Deps{API: api, Session: sessionAs(t, "admin")}, Dashboard)
	require.NoError(t, err)
	assert.Contains(t, page.Body, "Signed in as alice (admin)")
	assert.Contains(t, page.Body, "3 online / 4")
	assert.Contains(t, page.Body, "1.0 GiB")
}

func TestViewErrorPropagates(t *testing.T) {
	api, _ := mockPanel(t, map[string]string{})

	_, err := load(t, Deps{API: api, Session: sessionAs(t, "admin")}, ProxyChains)
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, router.IsStaleBundle(err))
}

func TestStaleConsoleFailsBeforeFetching(t *testing.T) {
	api, calls := mockPanel(t, map[string]string{"/api/nodes": `{"data": []}`})
	stale := staleWatcher{err: router.ErrStaleBundle}

	_, err := load(t, Deps{API: api, Session: sessionAs(t, "admin"), Watcher: stale}, Nodes)
	assert.ErrorIs(t, err, router.ErrStaleBundle)
	assert.Zero(t, *calls)
}

func TestStaleConsoleReloadsThroughRouter(t *testing.T) {
	api, _ := mockPanel(t, map[string]string{})
	reloads := 0

	r := router.New(Routes(Deps{API: api, Session: sessionAs(t, "admin"), Watcher: staleWatcher{err: router.ErrStaleBundle}}))
	rc := &router.Recovery{
		Reloader: router.ReloaderFunc(func() error { reloads++; return nil }),
		Logger:   zerolog.Nop(),
	}
	rc.Install(r)

	nav, err := r.Navigate(context.Background(), Settings)
	require.NoError(t, err)
	assert.True(t, nav.Recovered)
	assert.Equal(t, 1, reloads)
}

func TestChangePasswordView(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(session.TokenKey, "T1"))
	require.NoError(t, st.Set(session.UserKey, `{"id":1,"username":"admin","role":"admin","password_changed":false}`))
	m := session.New(st, nil, zerolog.Nop())
	m.Rehydrate()

	page, err := load(t, Deps{Session: m}, ChangePassword)
	require.NoError(t, err)
	assert.Contains(t, page.Body, "initial password")
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:          "0 B",
		1023:       "1023 B",
		1024:       "1.0 KiB",
		1536:       "1.5 KiB",
		1048576:    "1.0 MiB",
		5368709120: "5.0 GiB",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatBytes(in), "%d", in)
	}
}

func TestTableUnderline(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, table(&buf, []string{"ID", "NAME"}, [][]string{{"1", "edge"}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "──"))
}
