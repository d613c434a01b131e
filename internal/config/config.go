package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/medinote/consent-service/internal/policy"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
	Consent  ConsentConfig  `mapstructure:"consent"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds the MySQL data source name
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.User, c.Password, c.Hostname, c.Port, c.Database)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds authentication configuration for the trusted API
// surface. The public decision endpoint is the only route exempt from it.
type SecurityConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ConsentConfig holds the externally tunable consent parameters. Per the
// product design only the jurisdiction selector and the token validity
// window are configurable; poll interval and attempt ceiling are compiled-in.
type ConsentConfig struct {
	Jurisdiction     string        `mapstructure:"jurisdiction"`
	TokenExpiry      time.Duration `mapstructure:"token_expiry"`
	ClinicName       string        `mapstructure:"clinic_name"`
	ConsentLinkBase  string        `mapstructure:"consent_link_base"`
	ExpirySweepEvery string        `mapstructure:"expiry_sweep_every"`
}

// JurisdictionCode returns the configured jurisdiction as a typed value.
func (c *ConsentConfig) JurisdictionCode() policy.Jurisdiction {
	return policy.Jurisdiction(c.Jurisdiction)
}

// Load reads configuration from the given path (or the default search
// locations) with environment-variable overrides of the form CONSENT_*.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.hostname", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "consent")
	v.SetDefault("database.database", "consentdb")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("consent.jurisdiction", "DE")
	v.SetDefault("consent.token_expiry", 7*24*time.Hour)
	v.SetDefault("consent.expiry_sweep_every", "@every 15m")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("deployment")
		v.SetConfigType("yaml")
		v.AddConfigPath("repository/conf")
		v.AddConfigPath("cmd/server/repository/conf")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONSENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env vars are enough to run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if !policy.IsKnown(c.Consent.JurisdictionCode()) {
		return fmt.Errorf("unknown jurisdiction: %s", c.Consent.Jurisdiction)
	}
	if c.Consent.TokenExpiry <= 0 {
		return fmt.Errorf("consent.token_expiry must be positive")
	}
	return nil
}
