package client

import "time"

// User is the profile snapshot the panel returns on login and from /api/auth/me.
type User struct {
	ID              uint       `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email,omitempty"`
	Role            string     `json:"role"`
	PasswordChanged bool       `json:"password_changed"`
	EmailVerified   bool       `json:"email_verified"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	LastLoginIP     string     `json:"last_login_ip,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// LoginResponse is the raw body of POST /api/auth/login. The panel answers
// with either {requires_2fa, temp_token} or {token, user}.
type LoginResponse struct {
	Token       string `json:"token,omitempty"`
	User        *User  `json:"user,omitempty"`
	Requires2FA bool   `json:"requires_2fa,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TwoFactorRequest completes a login that answered requires_2fa.
type TwoFactorRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

// RegisterRequest represents the self-registration body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the change-password body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ResetPasswordRequest represents the reset-password body
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is the generic {"message": "..."} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// PageParams are the query parameters accepted by paginated listings.
type PageParams struct {
	Page     int
	PageSize int
	Search   string
}

// Paginated wraps one page of a listing.
type Paginated[T any] struct {
	Data     []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// BaseEntity carries the fields every panel record has.
type BaseEntity struct {
	ID        uint       `json:"id"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Tag struct {
	BaseEntity
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Node struct {
	BaseEntity
	Name        string         `json:"name"`
	Host        string         `json:"host"`
	Port        int            `json:"port"`
	Protocol    string         `json:"protocol"`
	Status      string         `json:"status"`
	Config      map[string]any `json:"config,omitempty"`
	TrafficIn   int64          `json:"traffic_in"`
	TrafficOut  int64          `json:"traffic_out"`
	Connections int            `json:"connections"`
	Latency     *int           `json:"latency,omitempty"`
	Tags        []Tag          `json:"tags,omitempty"`
}

// ProxyClient is a tunnel client registered on a node.
type ProxyClient struct {
	BaseEntity
	Name          string     `json:"name"`
	NodeID        uint       `json:"node_id"`
	Status        string     `json:"status"`
	ListenPort    int        `json:"listen_port"`
	TargetAddr    string     `json:"target_addr"`
	TrafficIn     int64      `json:"traffic_in"`
	TrafficOut    int64      `json:"traffic_out"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	Node          *Node      `json:"node,omitempty"`
}

type NotifyChannel struct {
	BaseEntity
	Name    string `json:"name"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type PortForward struct {
	BaseEntity
	Name       string `json:"name"`
	NodeID     uint   `json:"node_id"`
	Protocol   string `json:"protocol"`
	ListenPort int    `json:"listen_port"`
	TargetAddr string `json:"target_addr"`
	Enabled    bool   `json:"enabled"`
	Node       *Node  `json:"node,omitempty"`
}

type NodeGroupMember struct {
	BaseEntity
	GroupID uint  `json:"group_id"`
	NodeID  uint  `json:"node_id"`
	Weight  int   `json:"weight"`
	Node    *Node `json:"node,omitempty"`
}

type NodeGroup struct {
	BaseEntity
	Name     string            `json:"name"`
	Strategy string            `json:"strategy"`
	Members  []NodeGroupMember `json:"members,omitempty"`
}

type ProxyChainHop struct {
	BaseEntity
	ChainID uint  `json:"chain_id"`
	NodeID  uint  `json:"node_id"`
	Order   int   `json:"order"`
	Node    *Node `json:"node,omitempty"`
}

type ProxyChain struct {
	BaseEntity
	Name    string          `json:"name"`
	Enabled bool            `json:"enabled"`
	Hops    []ProxyChainHop `json:"hops,omitempty"`
}

type Tunnel struct {
	BaseEntity
	Name        string `json:"name"`
	EntryNodeID uint   `json:"entry_node_id"`
	ExitNodeID  uint   `json:"exit_node_id"`
	ListenPort  int    `json:"listen_port"`
	TargetAddr  string `json:"target_addr"`
	Enabled     bool   `json:"enabled"`
	EntryNode   *Node  `json:"entry_node,omitempty"`
	ExitNode    *Node  `json:"exit_node,omitempty"`
}

type OperationLog struct {
	BaseEntity
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	Resource   string `json:"resource"`
	ResourceID uint   `json:"resource_id"`
	Details    string `json:"details"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
}

type Stats struct {
	TotalNodes       int   `json:"total_nodes"`
	OnlineNodes      int   `json:"online_nodes"`
	TotalClients     int   `json:"total_clients"`
	OnlineClients    int   `json:"online_clients"`
	TotalUsers       int   `json:"total_users"`
	TotalTrafficIn   int64 `json:"total_traffic_in"`
	TotalTrafficOut  int64 `json:"total_traffic_out"`
	TotalConnections int   `json:"total_connections"`
}

type SiteConfig struct {
	SiteName                 string `json:"site_name,omitempty"`
	SiteURL                  string `json:"site_url,omitempty"`
	FooterText               string `json:"footer_text,omitempty"`
	RegistrationEnabled      string `json:"registration_enabled,omitempty"`
	EmailVerificationEnabled string `json:"email_verification_enabled,omitempty"`
}
