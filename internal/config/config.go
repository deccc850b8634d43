package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
}

// JWTConfig represents JWT configuration for API callers
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CloudConfig represents cloud network-management API configuration
type CloudConfig struct {
	// APIBase is the default primary API base URL; per-identity credential
	// records may override it.
	APIBase string `yaml:"api_base"`

	// ReportsAPIBase is the default base URL of the reporting API.
	ReportsAPIBase string `yaml:"reports_api_base"`

	// IdentityURL is the default OAuth token endpoint.
	IdentityURL string `yaml:"identity_url"`

	// RequestTimeout bounds every outbound call, token issuance included.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// TokenSafetyMargin is subtracted from the provider-declared token
	// lifetime so a token is never presented in its last moments.
	TokenSafetyMargin time.Duration `yaml:"token_safety_margin"`

	// EncryptionKey seals stored auth headers at rest (hex or raw, 32 bytes).
	EncryptionKey string `yaml:"encryption_key"`
}

// ForwarderConfig represents health-event forwarding configuration
type ForwarderConfig struct {
	HTTP HTTPForwarderConfig `yaml:"http"`
	MQTT MQTTForwarderConfig `yaml:"mqtt"`
}

// HTTPForwarderConfig represents the webhook forwarding target
type HTTPForwarderConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers"`
}

// MQTTForwarderConfig represents the MQTT forwarding target
type MQTTForwarderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TopicPattern string `yaml:"topic_pattern"`
	QoS          byte   `yaml:"qos"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}

	if base := os.Getenv("CLOUD_API_BASE"); base != "" {
		c.Cloud.APIBase = base
	}

	if base := os.Getenv("CLOUD_REPORTS_API_BASE"); base != "" {
		c.Cloud.ReportsAPIBase = base
	}

	if key := os.Getenv("CLOUD_ENCRYPTION_KEY"); key != "" {
		c.Cloud.EncryptionKey = key
	}
}

// applyDefaults fills in values the config file may omit
func (c *Config) applyDefaults() {
	if c.Cloud.RequestTimeout == 0 {
		c.Cloud.RequestTimeout = 10 * time.Second
	}
	if c.Cloud.TokenSafetyMargin == 0 {
		c.Cloud.TokenSafetyMargin = 60 * time.Second
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "monitor"
	}
}
