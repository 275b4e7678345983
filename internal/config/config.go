package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIgnorePatterns is the ignore set applied when the config file does
// not provide one. Matching is substring matching, so short fragments like
// ".git" block entire subtrees.
var DefaultIgnorePatterns = []string{
	".git",
	"node_modules",
	".env",
	".DS_Store",
	".log",
	".tmp",
	".swp",
}

// Config represents the complete autosyncd configuration
type Config struct {
	Repo  RepoConfig  `yaml:"repo"`
	Watch WatchConfig `yaml:"watch"`
	Sync  SyncConfig  `yaml:"sync"`
	Serve ServeConfig `yaml:"serve"`
}

// RepoConfig configures the watched repository and push target
type RepoConfig struct {
	Path   string `yaml:"path"`
	Remote string `yaml:"remote"`
	Branch string `yaml:"branch"`
}

// WatchConfig configures event filtering and the debounce window
type WatchConfig struct {
	DebounceSeconds int      `yaml:"debounce_seconds"`
	IgnorePatterns  []string `yaml:"ignore_patterns"`
}

// SyncConfig configures sync cycle behavior
type SyncConfig struct {
	CommandTimeoutSeconds int    `yaml:"command_timeout_seconds"`
	CommitPrefix          string `yaml:"commit_prefix"`
}

// ServeConfig configures the HTTP trigger/status server
type ServeConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddr    string `yaml:"listen_addr"`
	AuthTokenFile string `yaml:"auth_token_file"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Repo.Path = os.ExpandEnv(c.Repo.Path)
	c.Repo.Remote = os.ExpandEnv(c.Repo.Remote)
	c.Repo.Branch = os.ExpandEnv(c.Repo.Branch)
	c.Serve.ListenAddr = os.ExpandEnv(c.Serve.ListenAddr)
	c.Serve.AuthTokenFile = os.ExpandEnv(c.Serve.AuthTokenFile)
	for i, p := range c.Watch.IgnorePatterns {
		c.Watch.IgnorePatterns[i] = os.ExpandEnv(p)
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Repo.Path == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Repo.Path = wd
		} else {
			c.Repo.Path = "."
		}
	}
	if c.Repo.Remote == "" {
		c.Repo.Remote = "origin"
	}
	if c.Watch.DebounceSeconds == 0 {
		c.Watch.DebounceSeconds = 5
	}
	if c.Watch.IgnorePatterns == nil {
		c.Watch.IgnorePatterns = append([]string(nil), DefaultIgnorePatterns...)
	}
	if c.Sync.CommandTimeoutSeconds == 0 {
		c.Sync.CommandTimeoutSeconds = 30
	}
	if c.Sync.CommitPrefix == "" {
		c.Sync.CommitPrefix = "Auto-sync"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Repo.Branch == "" {
		return fmt.Errorf("repo.branch is required")
	}

	if c.Watch.DebounceSeconds < 0 {
		return fmt.Errorf("watch.debounce_seconds must not be negative: %d", c.Watch.DebounceSeconds)
	}
	if c.Sync.CommandTimeoutSeconds < 0 {
		return fmt.Errorf("sync.command_timeout_seconds must not be negative: %d", c.Sync.CommandTimeoutSeconds)
	}

	// Validate serve config if enabled
	if c.Serve.Enabled && c.Serve.ListenAddr == "" {
		return fmt.Errorf("serve.listen_addr is required when serve is enabled")
	}

	return nil
}

// DebounceWindow returns the minimum time between successful sync cycles
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Watch.DebounceSeconds) * time.Second
}

// CommandTimeout returns the bound applied to each external command
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Sync.CommandTimeoutSeconds) * time.Second
}
