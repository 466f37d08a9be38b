package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPanel creates a mock API server answering the login endpoint.
func mockPanel(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL)
}

func TestLogin_Authenticated(t *testing.T) {
	c := mockPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"), "login must not send a bearer token")

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, "correct-pw", req.Password)

		json.NewEncoder(w).Encode(map[string]any{
			"token": "T1",
			"user":  map[string]any{"id": 1, "username": "alice", "role": "admin", "password_changed": true},
		})
	})

	resp, err := c.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)
	assert.Equal(t, "T1", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "admin", resp.User.Role)
	assert.True(t, resp.User.PasswordChanged)
	assert.False(t, resp.Requires2FA)
}

func TestLogin_TwoFactorChallenge(t *testing.T) {
	c := mockPanel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"requires_2fa": true, "temp_token": "X"}`))
	})

	resp, err := c.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)
	assert.True(t, resp.Requires2FA)
	assert.Equal(t, "X", resp.TempToken)
	assert.Empty(t, resp.Token)
	assert.Nil(t, resp.User)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := mockPanel(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid credentials"}`))
	})

	_, err := c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestAuthenticatedCallsUseTokenSource(t *testing.T) {
	token := "T1"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		w.Write([]byte(`{"id": 7, "username": "bob", "role": "viewer"}`))
	}))
	defer server.Close()

	c := New(server.URL, WithTokenSource(func() string { return token }))

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)

	// The source is read per request, so a token change is picked up.
	token = "T2"
	_, err = c.Me(context.Background())
	require.NoError(t, err)
}

func TestListNodes_Pagination(t *testing.T) {
	c := mockPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/nodes", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		assert.Equal(t, "edge", r.URL.Query().Get("search"))
		w.Write([]byte(`{"data": [{"id": 1, "name": "edge-1", "host": "10.0.0.1", "port": 8443}], "total": 11, "page": 2, "page_size": 10}`))
	})

	page, err := c.ListNodes(context.Background(), PageParams{Page: 2, PageSize: 10, Search: "edge"})
	require.NoError(t, err)
	assert.Equal(t, 11, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "edge-1", page.Data[0].Name)
}

func TestAPIError_PlainBody(t *testing.T) {
	c := mockPanel(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := c.ListTunnels(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, "upstream down (status 502)", apiErr.Error())
}
