package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "gostctl"
)

// APIError is a non-2xx answer from the panel.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("panel returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Client represents an HTTP client for the GOST panel API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithInsecureTLS accepts self-signed panel certificates.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
}

// WithTokenSource sets where authenticated calls read the bearer token from.
// The source is consulted on every request so a login or logout takes effect
// on the next call.
func WithTokenSource(source func() string) Option {
	return func(c *Client) {
		c.tokenSource = source
	}
}

// New creates a new API client for the panel at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the panel address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login posts credentials. The response is either a 2FA challenge or a
// token with its user; the caller tells them apart.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	req := LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyTwoFactor exchanges a 2FA temp token and code for a session token.
func (c *Client) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*LoginResponse, error) {
	var resp LoginResponse
	req := TwoFactorRequest{TempToken: tempToken, Code: code}
	if err := c.do(ctx, http.MethodPost, "/api/auth/2fa/verify", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates an account on panels with self-registration enabled.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/register", req, false)
}

// VerifyEmail confirms an address with the token mailed at registration.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{"token": token}, false)
}

// ForgotPassword asks the panel to mail a reset token.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email}, false)
}

// ResetPassword sets a new password using a mailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	req := ResetPasswordRequest{Token: token, NewPassword: newPassword}
	return c.message(ctx, http.MethodPost, "/api/auth/reset-password", req, false)
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*MessageResponse, error) {
	req := ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	return c.message(ctx, http.MethodPost, "/api/auth/change-password", req, true)
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) SiteConfig(ctx context.Context) (*SiteConfig, error) {
	var cfg SiteConfig
	if err := c.do(ctx, http.MethodGet, "/api/site-config", nil, &cfg, true); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) ListNodes(ctx context.Context, params PageParams) (*Paginated[Node], error) {
	return listPage[Node](ctx, c, "/api/nodes", params)
}

func (c *Client) ListClients(ctx context.Context, params PageParams) (*Paginated[ProxyClient], error) {
	return listPage[ProxyClient](ctx, c, "/api/clients", params)
}

func (c *Client) ListUsers(ctx context.Context, params PageParams) (*Paginated[User], error) {
	return listPage[User](ctx, c, "/api/users", params)
}

func (c *Client) ListOperationLogs(ctx context.Context, params PageParams) (*Paginated[OperationLog], error) {
	return listPage[OperationLog](ctx, c, "/api/operation-logs", params)
}

func (c *Client) ListNotifyChannels(ctx context.Context) ([]NotifyChannel, error) {
	return listAll[NotifyChannel](ctx, c, "/api/notify-channels")
}

func (c *Client) ListPortForwards(ctx context.Context) ([]PortForward, error) {
	return listAll[PortForward](ctx, c, "/api/port-forwards")
}

func (c *Client) ListNodeGroups(ctx context.Context) ([]NodeGroup, error) {
	return listAll[NodeGroup](ctx, c, "/api/node-groups")
}

func (c *Client) ListProxyChains(ctx context.Context) ([]ProxyChain, error) {
	return listAll[ProxyChain](ctx, c, "/api/proxy-chains")
}

func (c *Client) ListTunnels(ctx context.Context) ([]Tunnel, error) {
	return listAll[Tunnel](ctx, c, "/api/tunnels")
}

func listPage[T any](ctx context.Context, c *Client, path string, params PageParams) (*Paginated[T], error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page Paginated[T]
	if err := c.do(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var items []T
	if err := c.do(ctx, http.MethodGet, path, nil, &items, true); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) message(ctx context.Context, method, path string, body any, authenticated bool) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, method, path, body, &resp, authenticated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one JSON request and decodes the JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if authenticated && c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
