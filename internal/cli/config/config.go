// Package config loads the console's panel profiles and settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = "gostpanel"
	ConfigFileName = "console.yaml"

	// DefaultPanelName scopes the session of a panel given only by URL.
	DefaultPanelName = "default"
)

// Environment variables read by the console.
const (
	EnvConfigFile = "GOSTCTL_CONFIG"
	EnvPanelURL   = "GOSTPANEL_URL"
	EnvPanel      = "GOSTCTL_PANEL"
	EnvStore      = "GOSTCTL_STORE"
	EnvLogLevel   = "GOSTCTL_LOG_LEVEL"
	EnvLogFormat  = "GOSTCTL_LOG_FORMAT"
	EnvUsername   = "GOSTCTL_USERNAME"
	EnvPassword   = "GOSTCTL_PASSWORD"
)

// Panel is one GOST panel the console can talk to.
type Panel struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// Config represents console.yaml
type Config struct {
	Panels    []Panel       `yaml:"panels"`
	Store     string        `yaml:"store,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	LogLevel  string        `yaml:"log_level,omitempty"`
	LogFormat string        `yaml:"log_format,omitempty"`
}

// DefaultPath returns GOSTCTL_CONFIG if set, otherwise console.yaml under
// the user config directory.
func DefaultPath() (string, error) {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path, nil
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, ConfigDirName, ConfigFileName), nil
}

// LoadDotEnv loads .env files from the working directory. Missing files are
// ignored and variables already set win.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads the configuration file. A missing file is an empty config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks panel names are unique and URLs are absolute http(s).
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Panels))
	for _, p := range c.Panels {
		if p.Name == "" {
			return fmt.Errorf("panel %q has no name", p.URL)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate panel name '%s'", p.Name)
		}
		seen[p.Name] = true
		if err := ValidateURL(p.URL); err != nil {
			return fmt.Errorf("panel '%s': %w", p.Name, err)
		}
	}
	return nil
}

// ApplyEnv overrides file settings with GOSTCTL_* variables and fills in
// defaults.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvStore); v != "" {
		c.Store = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// GetPanel returns a panel by its name
func (c *Config) GetPanel(name string) (*Panel, error) {
	for i := range c.Panels {
		if c.Panels[i].Name == name {
			return &c.Panels[i], nil
		}
	}
	return nil, fmt.Errorf("panel '%s' not found in config", name)
}

// GetPanelByURL returns the panel whose URL matches rawURL.
func (c *Config) GetPanelByURL(rawURL string) (*Panel, bool) {
	want := strings.TrimRight(rawURL, "/")
	for i := range c.Panels {
		if strings.TrimRight(c.Panels[i].URL, "/") == want {
			return &c.Panels[i], true
		}
	}
	return nil, false
}

// AddPanel adds or replaces the panel with p.Name.
func (c *Config) AddPanel(p Panel) {
	for i := range c.Panels {
		if c.Panels[i].Name == p.Name {
			c.Panels[i] = p
			return
		}
	}
	c.Panels = append(c.Panels, p)
}

// ValidateURL requires an absolute http or https URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return nil
}
