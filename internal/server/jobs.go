package server

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gostpanel/console/internal/auth"
	"github.com/gostpanel/console/internal/models"
)

// SeedAdminUsername is the account created from SEED_ADMIN_PASSWORD.
const SeedAdminUsername = "admin"

var defaultSiteConfig = []models.SiteConfig{
	{Key: models.SiteName, Value: "GOST Panel (dev)"},
	{Key: models.SiteURL, Value: ""},
	{Key: models.FooterText, Value: ""},
	{Key: models.RegistrationEnabled, Value: "true"},
	{Key: models.EmailVerificationEnabled, Value: "false"},
}

// pruneExpired drops two-factor challenges and mail tokens past their
// expiry. Runs on the prune schedule.
func (s *Server) pruneExpired() {
	now := s.now()

	targets := []struct {
		table string
		model any
	}{
		{"two_factor_challenges", &models.TwoFactorChallenge{}},
		{"email_tokens", &models.EmailToken{}},
	}
	for _, target := range targets {
		result := s.db.Where("expires_at < ?", now).Delete(target.model)
		if result.Error != nil {
			s.logger.Error().Err(result.Error).Str("table", target.table).Msg("Failed to prune expired records")
			continue
		}
		if result.RowsAffected > 0 {
			s.metrics.pruned.WithLabelValues(target.table).Add(float64(result.RowsAffected))
			s.logger.Debug().Str("table", target.table).Int64("count", result.RowsAffected).Msg("Pruned expired records")
		}
	}
}

// seed fills an empty database: site defaults always, the admin account
// and demo fleet when configured.
func (s *Server) seed() error {
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaultSiteConfig).Error; err != nil {
		return fmt.Errorf("failed to seed site config: %w", err)
	}

	if s.config.Seed.AdminPassword != "" {
		if err := s.seedAdmin(s.config.Seed.AdminPassword); err != nil {
			return err
		}
	}

	if s.config.Seed.Demo {
		if err := s.seedDemo(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) seedAdmin(password string) error {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	// The seeded password is meant to be changed on first login.
	admin := &models.User{
		Username:      SeedAdminUsername,
		PasswordHash:  passwordHash,
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info().Str("username", admin.Username).Msg("Seeded admin user")
	return nil
}

func (s *Server) seedDemo() error {
	var existing models.Node
	err := s.db.First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check demo data: %w", err)
	}

	heartbeat := s.now().Add(-30 * time.Second)

	return s.db.Transaction(func(tx *gorm.DB) error {
		nodes := []models.Node{
			{Name: "edge-fra", Host: "203.0.113.10", Port: 8443, Protocol: "socks5", Status: "online", TrafficIn: 3 << 30, TrafficOut: 5 << 30, Connections: 42},
			{Name: "edge-sgp", Host: "203.0.113.20", Port: 8443, Protocol: "http2", Status: "online", TrafficIn: 1 << 30, TrafficOut: 2 << 30, Connections: 17},
			{Name: "relay-nyc", Host: "198.51.100.5", Port: 443, Protocol: "relay+tls", Status: "offline"},
		}
		if err := tx.Create(&nodes).Error; err != nil {
			return err
		}

		records := []any{
			&[]models.Client{
				{Name: "office-gw", NodeID: nodes[0].ID, Status: "online", ListenPort: 1080, TargetAddr: "10.0.0.2:22", TrafficIn: 120 << 20, TrafficOut: 80 << 20, LastHeartbeat: &heartbeat},
				{Name: "lab-pi", NodeID: nodes[1].ID, Status: "offline", ListenPort: 2022, TargetAddr: "192.168.1.9:22"},
			},
			&[]models.NotifyChannel{
				{Name: "ops-mail", Type: "email", Enabled: true},
				{Name: "pager", Type: "webhook", Enabled: false},
			},
			&[]models.PortForward{
				{Name: "ssh-office", NodeID: nodes[0].ID, Protocol: "tcp", ListenPort: 2222, TargetAddr: "10.0.0.2:22", Enabled: true},
			},
			&[]models.NodeGroup{
				{Name: "edges", Strategy: "round", Members: []models.NodeGroupMember{
					{NodeID: nodes[0].ID, Weight: 2},
					{NodeID: nodes[1].ID, Weight: 1},
				}},
			},
			&[]models.ProxyChain{
				{Name: "via-relay", Enabled: true, Hops: []models.ProxyChainHop{
					{NodeID: nodes[0].ID, Order: 1},
					{NodeID: nodes[2].ID, Order: 2},
				}},
			},
			&[]models.Tunnel{
				{Name: "fra-to-nyc", EntryNodeID: nodes[0].ID, ExitNodeID: nodes[2].ID, ListenPort: 9000, TargetAddr: "127.0.0.1:9000", Enabled: true},
			},
		}
		for _, record := range records {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}

		s.logger.Info().Int("nodes", len(nodes)).Msg("Seeded demo data")
		return nil
	})
}
