package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleViewer = "viewer"
)

// BaseModel provides the id and timestamps every panel record carries
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Setting is the singleton row holding server secrets
type Setting struct {
	ID        uint   `gorm:"primaryKey"`
	JWTSecret string `gorm:"type:varchar(64);not null"` // Auto-generated on first start (64 hex chars)
}

// SiteConfig is a public key/value setting shown to every visitor
type SiteConfig struct {
	Key   string `json:"key" gorm:"primaryKey"`
	Value string `json:"value"`
}

// Well-known site config keys.
const (
	SiteName                 = "site_name"
	SiteURL                  = "site_url"
	FooterText               = "footer_text"
	RegistrationEnabled      = "registration_enabled"
	EmailVerificationEnabled = "email_verification_enabled"
)

// User represents a panel account
type User struct {
	BaseModel
	Username         string     `json:"username" gorm:"unique;not null"`
	Email            string     `json:"email,omitempty" gorm:"index"`
	PasswordHash     string     `json:"-" gorm:"not null"`
	Role             string     `json:"role" gorm:"not null;default:user"`
	PasswordChanged  bool       `json:"password_changed" gorm:"not null;default:false"`
	EmailVerified    bool       `json:"email_verified" gorm:"not null;default:false"`
	TwoFactorEnabled bool       `json:"two_factor_enabled" gorm:"not null;default:false"`
	TwoFactorSecret  string     `json:"-"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	LastLoginIP      string     `json:"last_login_ip,omitempty"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// TwoFactorChallenge is a pending login waiting for a TOTP code. Its ID is
// the temp token handed to the client.
type TwoFactorChallenge struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (c *TwoFactorChallenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	return nil
}

// Email token purposes.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

// EmailToken is a one-time token mailed for verification or reset
type EmailToken struct {
	Token     string    `gorm:"primaryKey;type:varchar(26)"`
	UserID    uint      `gorm:"not null;index"`
	Purpose   string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the token if it's empty
func (t *EmailToken) BeforeCreate(tx *gorm.DB) error {
	if t.Token == "" {
		t.Token = ulid.Make().String()
	}
	return nil
}

// Node is a GOST proxy node
type Node struct {
	BaseModel
	Name        string `json:"name" gorm:"not null"`
	Host        string `json:"host" gorm:"not null"`
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
	Status      string `json:"status" gorm:"default:offline"`
	TrafficIn   int64  `json:"traffic_in"`
	TrafficOut  int64  `json:"traffic_out"`
	Connections int    `json:"connections"`
}

// Client is a tunnel client registered on a node
type Client struct {
	BaseModel
	Name          string     `json:"name" gorm:"not null"`
	NodeID        uint       `json:"node_id"`
	Status        string     `json:"status" gorm:"default:offline"`
	ListenPort    int        `json:"listen_port"`
	TargetAddr    string     `json:"target_addr"`
	TrafficIn     int64      `json:"traffic_in"`
	TrafficOut    int64      `json:"traffic_out"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	Node          *Node      `json:"node,omitempty" gorm:"foreignKey:NodeID"`
}

type NotifyChannel struct {
	BaseModel
	Name    string `json:"name" gorm:"not null"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type PortForward struct {
	BaseModel
	Name       string `json:"name" gorm:"not null"`
	NodeID     uint   `json:"node_id"`
	Protocol   string `json:"protocol"`
	ListenPort int    `json:"listen_port"`
	TargetAddr string `json:"target_addr"`
	Enabled    bool   `json:"enabled"`
	Node       *Node  `json:"node,omitempty" gorm:"foreignKey:NodeID"`
}

type NodeGroup struct {
	BaseModel
	Name     string            `json:"name" gorm:"not null"`
	Strategy string            `json:"strategy"`
	Members  []NodeGroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

type NodeGroupMember struct {
	BaseModel
	GroupID uint  `json:"group_id" gorm:"not null;index"`
	NodeID  uint  `json:"node_id"`
	Weight  int   `json:"weight"`
	Node    *Node `json:"node,omitempty" gorm:"foreignKey:NodeID"`
}

type ProxyChain struct {
	BaseModel
	Name    string          `json:"name" gorm:"not null"`
	Enabled bool            `json:"enabled"`
	Hops    []ProxyChainHop `json:"hops,omitempty" gorm:"foreignKey:ChainID;constraint:OnDelete:CASCADE"`
}

type ProxyChainHop struct {
	BaseModel
	ChainID uint  `json:"chain_id" gorm:"not null;index"`
	NodeID  uint  `json:"node_id"`
	Order   int   `json:"order" gorm:"column:hop_order"`
	Node    *Node `json:"node,omitempty" gorm:"foreignKey:NodeID"`
}

type Tunnel struct {
	BaseModel
	Name        string `json:"name" gorm:"not null"`
	EntryNodeID uint   `json:"entry_node_id"`
	ExitNodeID  uint   `json:"exit_node_id"`
	ListenPort  int    `json:"listen_port"`
	TargetAddr  string `json:"target_addr"`
	Enabled     bool   `json:"enabled"`
	EntryNode   *Node  `json:"entry_node,omitempty" gorm:"foreignKey:EntryNodeID"`
	ExitNode    *Node  `json:"exit_node,omitempty" gorm:"foreignKey:ExitNodeID"`
}

// OperationLog records one user action
type OperationLog struct {
	BaseModel
	UserID     uint   `json:"user_id" gorm:"index"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	Resource   string `json:"resource"`
	ResourceID uint   `json:"resource_id"`
	Details    string `json:"details"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&Setting{}, &SiteConfig{}, &User{}, &TwoFactorChallenge{}, &EmailToken{},
		&Node{}, &Client{}, &NotifyChannel{}, &PortForward{},
		&NodeGroup{}, &NodeGroupMember{}, &ProxyChain{}, &ProxyChainHop{},
		&Tunnel{}, &OperationLog{},
	}

	return db.AutoMigrate(models...)
}

// FindByID finds a record by its numeric ID
func FindByID[T any](db *gorm.DB, id uint, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id uint, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
