package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, name := range []string{"DATABASE_URL", "LISTEN_ADDR", "CORS_ORIGINS", "JWT_SECRET", "TOKEN_TTL", "CHALLENGE_TTL", "SEED_ADMIN_PASSWORD", "SEED_DEMO", "PRUNE_SCHEDULE", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gostpanel-dev.sqlite", cfg.Database.URL)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ChallengeTTL)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "*/5 * * * *", cfg.Auth.PruneSchedule)
	assert.False(t, cfg.Seed.Demo)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SEED_ADMIN_PASSWORD", "changeme")
	t.Setenv("SEED_DEMO", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file::memory:", cfg.Database.URL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "changeme", cfg.Seed.AdminPassword)
	assert.True(t, cfg.Seed.Demo)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHALLENGE_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid CHALLENGE_TTL")
}
