// Package config provides configuration loading and management for the sync server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables consumed by the server.
const EnvPrefix = "SENCE_SYNC"

// Defaults applied when the corresponding fields are omitted.
const (
	DefaultAddress        = ":8080"
	DefaultSessionTTL     = 10 * time.Minute
	DefaultSweepInterval  = 2 * time.Minute
	DefaultScraperTimeout = 3 * time.Minute
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server   ServerConfig    `yaml:"server,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
	Scraper  ScraperConfig   `yaml:"scraper"`
	Session  SessionConfig   `yaml:"session,omitempty"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	// Address is the listen address for the HTTP API (host:port)
	Address string `yaml:"address,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of connections in the pool
	MaxConns int32 `yaml:"maxConns,omitempty"`
}

// ScraperConfig defines the external scraping/automation endpoint settings
type ScraperConfig struct {
	// Endpoint is the base URL of the scraping automation service
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single declaration-fetch round trip. The remote side
	// proxies a live browser automation, so this is minutes, not seconds.
	Timeout string `yaml:"timeout,omitempty"`

	// HandoffURL is the external SENCE login page the frontend opens; the
	// session identifier is appended as a query parameter.
	HandoffURL string `yaml:"handoffUrl,omitempty"`
}

// SessionConfig defines sync session lifetime settings
type SessionConfig struct {
	// TTL is how long a prepared session stays consumable (e.g. "10m")
	TTL string `yaml:"ttl,omitempty"`

	// SweepInterval is how often expired sessions are purged (e.g. "2m")
	SweepInterval string `yaml:"sweepInterval,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from SENCE_SYNC_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	// Priority 1: Read from file if specified
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		// Trim whitespace (including newlines) from file content
		return strings.TrimSpace(string(data)), nil
	}

	// Priority 2: Check environment variable
	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable",
		EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// GetAddress returns the listen address, using the default if not specified
func (c *Config) GetAddress() string {
	if c.Server.Address == "" {
		return DefaultAddress
	}
	return c.Server.Address
}

// GetSessionTTL returns the configured session TTL, or the default
func (c *Config) GetSessionTTL() time.Duration {
	return durationOrDefault(c.Session.TTL, DefaultSessionTTL)
}

// GetSweepInterval returns the configured sweep interval, or the default
func (c *Config) GetSweepInterval() time.Duration {
	return durationOrDefault(c.Session.SweepInterval, DefaultSweepInterval)
}

// GetScraperTimeout returns the configured scraper round-trip timeout, or the default
func (c *Config) GetScraperTimeout() time.Duration {
	return durationOrDefault(c.Scraper.Timeout, DefaultScraperTimeout)
}

func durationOrDefault(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Scraper.Endpoint == "" {
		return fmt.Errorf("scraper.endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.Scraper.Endpoint); err != nil {
		return fmt.Errorf("scraper.endpoint must be a valid URL: %w", err)
	}

	if err := validateDuration(c.Scraper.Timeout, "scraper.timeout"); err != nil {
		return err
	}
	if err := validateDuration(c.Session.TTL, "session.ttl"); err != nil {
		return err
	}
	if err := validateDuration(c.Session.SweepInterval, "session.sweepInterval"); err != nil {
		return err
	}

	if c.Database != nil {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	return nil
}

// validateDatabase validates the database configuration block
func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	return nil
}

// validateDuration ensures a non-empty duration string parses
func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g. '10m', '2m'): %w", field, err)
	}
	return nil
}
