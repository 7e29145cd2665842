// Package config loads and saves the client's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultHomeserver is used when neither the file nor the command line
	// names one
	DefaultHomeserver = "https://matrix.org"
	// LocalFilename is checked in the working directory before the user
	// config directory
	LocalFilename = "hearth.toml"
)

// Config holds the client settings
type Config struct {
	Homeserver    string        `toml:"homeserver"`
	Username      string        `toml:"username"`
	Theme         string        `toml:"theme"`
	BackfillLimit int           `toml:"backfill_limit"`
	Notifications bool          `toml:"notifications"`
	LogPath       string        `toml:"log_path"`
	Invites       InvitesConfig `toml:"invites"`
}

// InvitesConfig controls automatic invitation handling
type InvitesConfig struct {
	AutoAccept   bool     `toml:"auto_accept"`
	InitialDelay Duration `toml:"initial_delay"`
	MaxWait      Duration `toml:"max_wait"`
}

// Duration is a time.Duration written as a string such as "2s" or "1h"
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Homeserver:    DefaultHomeserver,
		Theme:         "dracula",
		BackfillLimit: 100,
		Notifications: true,
		Invites: InvitesConfig{
			AutoAccept:   true,
			InitialDelay: Duration{2 * time.Second},
			MaxWait:      Duration{time.Hour},
		},
	}
}

// DefaultPath returns the per-user config file location
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "hearth", "config.toml"), nil
}

// SearchPaths lists the files Find checks, in order
func SearchPaths() []string {
	paths := []string{LocalFilename}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "hearth", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hearth", "config.toml"))
	}
	return paths
}

// Find returns the first existing file from SearchPaths, or "" if none exist
func Find() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load reads the config at path over the defaults. An empty path searches
// SearchPaths and falls back to the defaults when nothing is found. An
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Find()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.BackfillLimit < 0 {
		return errors.New("backfill_limit must not be negative")
	}
	if c.Invites.AutoAccept && c.Invites.InitialDelay.Duration <= 0 {
		return errors.New("invites.initial_delay must be positive")
	}
	return nil
}

// Save writes the config to path atomically, creating parent directories
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to temp file first (atomic write)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Exists reports whether path names an existing file
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
