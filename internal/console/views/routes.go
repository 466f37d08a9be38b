// Package views holds the console's route table and the loaders that fetch
// and render each view.
package views

import (
	"context"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/router"
	"github.com/gostpanel/console/internal/console/session"
)

// Public routes.
const (
	Login          = "login"
	Register       = "register"
	VerifyEmail    = "verify-email"
	ForgotPassword = "forgot-password"
	ResetPassword  = "reset-password"
)

// Protected routes, rendered inside the main layout.
const (
	Dashboard      = "dashboard"
	Nodes          = "nodes"
	Clients        = "clients"
	Users          = "users"
	Notify         = "notify"
	PortForwards   = "port-forwards"
	NodeGroups     = "node-groups"
	ProxyChains    = "proxy-chains"
	Tunnels        = "tunnels"
	Settings       = "settings"
	OperationLogs  = "operation-logs"
	ChangePassword = "change-password"
)

// PublicRoutes are reachable without a session.
var PublicRoutes = []string{Login, Register, VerifyEmail, ForgotPassword, ResetPassword}

// ProtectedRoutes in menu order.
var ProtectedRoutes = []string{
	Dashboard, Nodes, Clients, Users, Notify, PortForwards,
	NodeGroups, ProxyChains, Tunnels, Settings, OperationLogs, ChangePassword,
}

// PanelAPI is the part of the panel client the views read from.
type PanelAPI interface {
	Stats(ctx context.Context) (*client.Stats, error)
	SiteConfig(ctx context.Context) (*client.SiteConfig, error)
	ListNodes(ctx context.Context, params client.PageParams) (*client.Paginated[client.Node], error)
	ListClients(ctx context.Context, params client.PageParams) (*client.Paginated[client.ProxyClient], error)
	ListUsers(ctx context.Context, params client.PageParams) (*client.Paginated[client.User], error)
	ListOperationLogs(ctx context.Context, params client.PageParams) (*client.Paginated[client.OperationLog], error)
	ListNotifyChannels(ctx context.Context) ([]client.NotifyChannel, error)
	ListPortForwards(ctx context.Context) ([]client.PortForward, error)
	ListNodeGroups(ctx context.Context) ([]client.NodeGroup, error)
	ListProxyChains(ctx context.Context) ([]client.ProxyChain, error)
	ListTunnels(ctx context.Context) ([]client.Tunnel, error)
}

// StalenessChecker reports when the running console is out of date.
type StalenessChecker interface {
	Check() error
}

// Deps are what the loaders need.
type Deps struct {
	API     PanelAPI
	Session *session.Manager
	// Watcher is optional.
	Watcher StalenessChecker
	// Page selects the page of paginated listings.
	Page client.PageParams
}

// Routes returns the full route table bound to d.
func Routes(d Deps) []router.Route {
	v := &views{deps: d}
	return []router.Route{
		{Name: Login, Path: "/login", Load: v.static(Login, loginHelp)},
		{Name: Register, Path: "/register", Load: v.static(Register, registerHelp)},
		{Name: VerifyEmail, Path: "/verify-email", Load: v.static(VerifyEmail, verifyEmailHelp)},
		{Name: ForgotPassword, Path: "/forgot-password", Load: v.static(ForgotPassword, forgotPasswordHelp)},
		{Name: ResetPassword, Path: "/reset-password", Load: v.static(ResetPassword, resetPasswordHelp)},

		{Name: Dashboard, Path: "/dashboard", Load: v.guarded(Dashboard, v.dashboard)},
		{Name: Nodes, Path: "/nodes", Load: v.guarded(Nodes, v.nodes)},
		{Name: Clients, Path: "/clients", Load: v.guarded(Clients, v.clients)},
		{Name: Users, Path: "/users", Load: v.guarded(Users, v.users)},
		{Name: Notify, Path: "/notify", Load: v.guarded(Notify, v.notify)},
		{Name: PortForwards, Path: "/port-forwards", Load: v.guarded(PortForwards, v.portForwards)},
		{Name: NodeGroups, Path: "/node-groups", Load: v.guarded(NodeGroups, v.nodeGroups)},
		{Name: ProxyChains, Path: "/proxy-chains", Load: v.guarded(ProxyChains, v.proxyChains)},
		{Name: Tunnels, Path: "/tunnels", Load: v.guarded(Tunnels, v.tunnels)},
		{Name: Settings, Path: "/settings", Load: v.guarded(Settings, v.settings)},
		{Name: OperationLogs, Path: "/operation-logs", Load: v.guarded(OperationLogs, v.operationLogs)},
		{Name: ChangePassword, Path: "/change-password", Load: v.guarded(ChangePassword, v.changePassword)},
	}
}

// Title returns the display title of a route name.
func Title(name string) string {
	if t, ok := titles[name]; ok {
		return t
	}
	return name
}

var titles = map[string]string{
	Login:          "Login",
	Register:       "Register",
	VerifyEmail:    "Verify email",
	ForgotPassword: "Forgot password",
	ResetPassword:  "Reset password",
	Dashboard:      "Dashboard",
	Nodes:          "Nodes",
	Clients:        "Clients",
	Users:          "Users",
	Notify:         "Notify channels",
	PortForwards:   "Port forwards",
	NodeGroups:     "Node groups",
	ProxyChains:    "Proxy chains",
	Tunnels:        "Tunnels",
	Settings:       "Settings",
	OperationLogs:  "Operation logs",
	ChangePassword: "Change password",
}
