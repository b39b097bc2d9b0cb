// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	appName        = "ospresenter"
	configFileName = "config.json"
)

// Defaults applied when a field is missing or zero.
const (
	DefaultHandshakeTimeoutMs  = 5000
	DefaultBroadcastIntervalMs = 33
	DefaultSkipSeconds         = 10
	DefaultResumeTTLHours      = 24 * 30
)

// ErrNotPersisted is returned by Save for a config that was not loaded from
// a file, so a file that failed to load is never overwritten.
var ErrNotPersisted = errors.New("config has no backing file")

// Config represents the application configuration.
type Config struct {
	// Video sync
	HandshakeTimeoutMs  int     `json:"handshake_timeout_ms,omitempty"`
	BroadcastIntervalMs int     `json:"broadcast_interval_ms,omitempty"`
	SkipSeconds         float64 `json:"skip_seconds,omitempty"`

	// Resume positions
	ResumeTTLHours int `json:"resume_ttl_hours,omitempty"`

	// Audience window
	AudienceAlwaysOnTop *bool `json:"audience_always_on_top,omitempty"`

	path string
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path. Save writes back to the same path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	cfg.path = path

	return &cfg, nil
}

// Default returns the built-in configuration. It is not backed by a file:
// changes apply in memory and Save reports ErrNotPersisted.
func Default() *Config {
	return defaultConfig()
}

// Save persists the configuration to the file it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		return ErrNotPersisted
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// HandshakeTimeout is how long the presenter waits for the audience video.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMs) * time.Millisecond
}

// BroadcastInterval is the host-side video state rebroadcast cadence.
func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastIntervalMs) * time.Millisecond
}

// ResumeTTL is how long resume positions are kept.
func (c *Config) ResumeTTL() time.Duration {
	return time.Duration(c.ResumeTTLHours) * time.Hour
}

// AlwaysOnTop reports whether the audience window floats above others.
func (c *Config) AlwaysOnTop() bool {
	return c.AudienceAlwaysOnTop == nil || *c.AudienceAlwaysOnTop
}

// SetHandshakeTimeout updates and persists the handshake timeout.
func (c *Config) SetHandshakeTimeout(d time.Duration) error {
	if d < 500*time.Millisecond {
		return fmt.Errorf("handshake timeout too short: %s", d)
	}
	c.HandshakeTimeoutMs = int(d.Milliseconds())
	return c.Save()
}

// SetSkipSeconds updates and persists the skip distance.
func (c *Config) SetSkipSeconds(s float64) error {
	if s <= 0 {
		return fmt.Errorf("skip seconds must be positive")
	}
	c.SkipSeconds = s
	return c.Save()
}

// SetAudienceAlwaysOnTop updates and persists the audience window setting.
func (c *Config) SetAudienceAlwaysOnTop(on bool) error {
	c.AudienceAlwaysOnTop = &on
	return c.Save()
}

// Dir returns the application's data directory.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeoutMs <= 0 {
		c.HandshakeTimeoutMs = DefaultHandshakeTimeoutMs
	}
	if c.BroadcastIntervalMs <= 0 {
		c.BroadcastIntervalMs = DefaultBroadcastIntervalMs
	}
	if c.SkipSeconds <= 0 {
		c.SkipSeconds = DefaultSkipSeconds
	}
	if c.ResumeTTLHours <= 0 {
		c.ResumeTTLHours = DefaultResumeTTLHours
	}
}

func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
