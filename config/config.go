// Package config loads the pulse configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SMTP holds digest email delivery settings. The password comes from
// the PULSE_SMTP_PASSWORD environment variable, never from this file.
type SMTP struct {
	Host string   `yaml:"host,omitempty"`
	Port int      `yaml:"port,omitempty"`
	User string   `yaml:"user,omitempty"`
	From string   `yaml:"from,omitempty"`
	To   []string `yaml:"to,omitempty"`
}

// Config represents the application configuration.
type Config struct {
	// Owner is the GitHub account whose repositories are monitored.
	Owner string `yaml:"owner,omitempty"`
	// GalleryAuthor is the PowerShell Gallery author name; empty skips
	// the gallery source.
	GalleryAuthor string `yaml:"gallery_author,omitempty"`
	// Repos limits monitoring to these repository names (all non-fork
	// repos when empty).
	Repos []string `yaml:"repos,omitempty"`

	DefaultFormat string `yaml:"default_format,omitempty"`
	OutputPath    string `yaml:"output_path,omitempty"`
	StatePath     string `yaml:"state_path,omitempty"`
	Since         string `yaml:"since,omitempty"`

	SMTP *SMTP `yaml:"smtp,omitempty"`
}

// DefaultConfigDir returns the default config directory.
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".pulse"
	}
	return filepath.Join(configDir, "pulse")
}

// ConfigPath returns the path to the global config file.
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the
// current directory.
func LocalConfigPath() string {
	return ".pulse.yaml"
}

// Load loads the configuration from disk. The global config from the
// XDG config directory is read first, then any local .pulse.yaml is
// merged on top (local values take precedence).
func Load() (*Config, error) {
	cfg := &Config{
		DefaultFormat: "console",
		Since:         "24h",
	}

	if err := readInto(ConfigPath(), cfg); err != nil {
		return nil, err
	}

	localPath := LocalConfigPath()
	if _, err := os.Stat(localPath); err == nil {
		var local Config
		if err := readInto(localPath, &local); err != nil {
			return nil, err
		}
		cfg = merge(cfg, &local)
	}

	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "console"
	}
	if cfg.Since == "" {
		cfg.Since = "24h"
	}
	return cfg, nil
}

func readInto(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return nil // absent config files are fine
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// merge overlays local on top of global; unset local values preserve
// global values.
func merge(global, local *Config) *Config {
	result := *global

	if local.Owner != "" {
		result.Owner = local.Owner
	}
	if local.GalleryAuthor != "" {
		result.GalleryAuthor = local.GalleryAuthor
	}
	if len(local.Repos) > 0 {
		result.Repos = local.Repos
	}
	if local.DefaultFormat != "" {
		result.DefaultFormat = local.DefaultFormat
	}
	if local.OutputPath != "" {
		result.OutputPath = local.OutputPath
	}
	if local.StatePath != "" {
		result.StatePath = local.StatePath
	}
	if local.Since != "" {
		result.Since = local.Since
	}
	if local.SMTP != nil {
		result.SMTP = local.SMTP
	}
	return &result
}

// Save writes the configuration to the global config path.
func (c *Config) Save() error {
	configDir := DefaultConfigDir()
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetGitHubToken returns the GitHub token from the GITHUB_TOKEN
// environment variable. Following 12-factor practice, tokens are only
// read from the environment.
func (c *Config) GetGitHubToken() string {
	return os.Getenv("GITHUB_TOKEN")
}

// MinimalConfig returns a minimal config template with comments.
func MinimalConfig() string {
	return `# pulse configuration file

# GitHub account to monitor
owner: your-github-login

# PowerShell Gallery author to monitor (optional)
# gallery_author: Your Name

# Limit to specific repositories (optional; all non-fork repos otherwise)
# repos:
#   - my-module
#   - my-other-module

# Output format: console or html
default_format: console

# Email delivery (optional; password from PULSE_SMTP_PASSWORD)
# smtp:
#   host: smtp.example.com
#   port: 587
#   user: digest@example.com
#   from: digest@example.com
#   to:
#     - you@example.com
`
}
