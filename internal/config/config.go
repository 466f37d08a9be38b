package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the development panel
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// HTTP Configuration
	HTTP HTTPConfig

	// Auth Configuration
	Auth AuthConfig

	// Seed Configuration
	Seed SeedConfig

	// Logging Configuration
	Logging LoggingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// HTTPConfig holds listener configuration
type HTTPConfig struct {
	ListenAddr  string
	CORSOrigins []string
}

// AuthConfig holds token and account settings
type AuthConfig struct {
	// JWTSecret signs session tokens. Empty means a secret generated on
	// first start and kept in the database.
	JWTSecret    string
	TokenTTL     time.Duration
	ChallengeTTL time.Duration
	// PruneSchedule is the cron expression for dropping expired challenges
	// and mail tokens.
	PruneSchedule string
}

// SeedConfig controls data created on an empty database
type SeedConfig struct {
	// AdminPassword creates an "admin" account when no users exist.
	AdminPassword string
	// Demo adds sample nodes, clients and tunnels.
	Demo bool
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	tokenTTL, err := durationEnv("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	challengeTTL, err := durationEnv("CHALLENGE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			URL: envOr("DATABASE_URL", "gostpanel-dev.sqlite"),
		},
		HTTP: HTTPConfig{
			ListenAddr:  envOr("LISTEN_ADDR", ":8080"),
			CORSOrigins: splitList(envOr("CORS_ORIGINS", "http://localhost:5173")),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTL:      tokenTTL,
			ChallengeTTL:  challengeTTL,
			PruneSchedule: envOr("PRUNE_SCHEDULE", "*/5 * * * *"),
		},
		Seed: SeedConfig{
			AdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
			Demo:          os.Getenv("SEED_DEMO") == "true",
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
