package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for tradegate.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig contains HTTP timeout settings in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuthConfig contains token signing and credential verification settings.
//
// The signing secret and TTL values are loaded once at startup and treated
// as immutable for the process lifetime.
type AuthConfig struct {
	// JWTSecret is the symmetric HMAC-SHA256 signing key for access tokens.
	JWTSecret string `yaml:"jwt_secret"`

	// Issuer and Audience are stamped into every access token and are part
	// of the platform-wide token contract.
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`

	// AccessTTLSeconds is the access token lifetime. Default: 900 (15 minutes).
	AccessTTLSeconds int `yaml:"access_ttl_seconds"`

	// RefreshTTLSeconds is the refresh session lifetime. Default: 604800 (7 days).
	RefreshTTLSeconds int `yaml:"refresh_ttl_seconds"`

	// AllowPlaintext enables the legacy plaintext-equality fallback when a
	// stored credential matches no known hash algorithm. Development only.
	// Every use is logged as a security warning. Default: false.
	AllowPlaintext bool `yaml:"allow_plaintext"`

	// DevEndpoints enables the /dev utility endpoints (hash, verify,
	// reset-password). When false they respond 404. Default: false.
	DevEndpoints bool `yaml:"dev_endpoints"`
}

// AccessTTL returns the access token lifetime as a duration.
func (c AuthConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLSeconds) * time.Second
}

// RefreshTTL returns the refresh session lifetime as a duration.
func (c AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLSeconds) * time.Second
}

// EventsConfig contains MQTT auth-event publishing settings.
// Publishing is optional; other platform services subscribe to the
// tradegate/auth/# topics when it is enabled.
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TRADEGATE_SECTION_KEY
// For example: TRADEGATE_DATABASE_PATH, TRADEGATE_AUTH_JWT_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: TimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/tradegate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Auth: AuthConfig{
			Issuer:            "tradegate",
			Audience:          "trade-data-platform",
			AccessTTLSeconds:  900,
			RefreshTTLSeconds: 604800,
			AllowPlaintext:    false,
			DevEndpoints:      false,
		},
		Events: EventsConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     1883,
			ClientID: "tradegate",
			QoS:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TRADEGATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("TRADEGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	overrideInt("TRADEGATE_SERVER_PORT", &cfg.Server.Port)
	overrideInt("TRADEGATE_SERVER_TIMEOUTS_READ", &cfg.Server.Timeouts.Read)
	overrideInt("TRADEGATE_SERVER_TIMEOUTS_WRITE", &cfg.Server.Timeouts.Write)
	overrideInt("TRADEGATE_SERVER_TIMEOUTS_IDLE", &cfg.Server.Timeouts.Idle)

	// Database
	if v := os.Getenv("TRADEGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	overrideBool("TRADEGATE_DATABASE_WAL_MODE", &cfg.Database.WALMode)
	overrideInt("TRADEGATE_DATABASE_BUSY_TIMEOUT", &cfg.Database.BusyTimeout)

	// Auth
	if v := os.Getenv("TRADEGATE_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TRADEGATE_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("TRADEGATE_AUTH_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	overrideInt("TRADEGATE_AUTH_ACCESS_TTL_SECONDS", &cfg.Auth.AccessTTLSeconds)
	overrideInt("TRADEGATE_AUTH_REFRESH_TTL_SECONDS", &cfg.Auth.RefreshTTLSeconds)
	overrideBool("TRADEGATE_AUTH_ALLOW_PLAINTEXT", &cfg.Auth.AllowPlaintext)
	overrideBool("TRADEGATE_AUTH_DEV_ENDPOINTS", &cfg.Auth.DevEndpoints)

	// Events
	overrideBool("TRADEGATE_EVENTS_ENABLED", &cfg.Events.Enabled)
	if v := os.Getenv("TRADEGATE_EVENTS_HOST"); v != "" {
		cfg.Events.Host = v
	}
	overrideInt("TRADEGATE_EVENTS_PORT", &cfg.Events.Port)
	if v := os.Getenv("TRADEGATE_EVENTS_CLIENT_ID"); v != "" {
		cfg.Events.ClientID = v
	}
	if v := os.Getenv("TRADEGATE_EVENTS_USERNAME"); v != "" {
		cfg.Events.Username = v
	}
	if v := os.Getenv("TRADEGATE_EVENTS_PASSWORD"); v != "" {
		cfg.Events.Password = v
	}
	overrideInt("TRADEGATE_EVENTS_QOS", &cfg.Events.QoS)

	// Logging
	if v := os.Getenv("TRADEGATE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRADEGATE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TRADEGATE_LOGGING_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
}

// overrideInt replaces *dst with the named environment variable when it
// holds a valid integer. Unparsable values are ignored.
func overrideInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// overrideBool replaces *dst with the named environment variable when it
// holds a valid boolean. Unparsable values are ignored.
func overrideBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// minSecretLength is the minimum accepted JWT signing secret length in bytes.
// Shorter HMAC keys materially weaken token signatures.
const minSecretLength = 32

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < minSecretLength {
		return fmt.Errorf("auth jwt_secret must be at least %d bytes", minSecretLength)
	}
	if c.Auth.AccessTTLSeconds <= 0 {
		return fmt.Errorf("auth access_ttl_seconds must be positive")
	}
	if c.Auth.RefreshTTLSeconds <= 0 {
		return fmt.Errorf("auth refresh_ttl_seconds must be positive")
	}
	if c.Events.Enabled && c.Events.Host == "" {
		return fmt.Errorf("events host is required when events are enabled")
	}
	if c.Events.QoS < 0 || c.Events.QoS > 2 {
		return fmt.Errorf("events qos %d out of range", c.Events.QoS)
	}
	return nil
}
