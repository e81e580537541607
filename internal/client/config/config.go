package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dmitrijs2005/dispersed/internal/flagx"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "DISPERSED"

// InMemorySession as SessionDB keeps the session for this run only.
const InMemorySession = ":memory:"

// Config holds runtime settings for the Dispersed client.
//
// ConnectTimeout bounds dialing and the TLS handshake only; requests have no
// overall deadline.
type Config struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	SessionDB      string        `mapstructure:"session_db"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	LogFormat      string        `mapstructure:"log_format"`
	LogLevel       string        `mapstructure:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIBaseURL:     "http://localhost:5001",
		SessionDB:      "session.db",
		ConnectTimeout: 5 * time.Second,
		LogFormat:      "text",
		LogLevel:       "info",
	}
}

// LoadConfig builds a Config from defaults, the optional JSON file, the
// environment and finally args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := Defaults()

	if err := loadFileAndEnv(&cfg, flagx.ConfigFile(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(&cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFileAndEnv overlays cfg with the JSON file at path (skipped when path
// is empty) and with DISPERSED_* variables.
func loadFileAndEnv(cfg *Config, path string) error {
	v := viper.New()

	// Registering every key as a default lets Unmarshal see env-only values.
	v.SetDefault("api_base_url", cfg.APIBaseURL)
	v.SetDefault("session_db", cfg.SessionDB)
	v.SetDefault("connect_timeout", cfg.ConnectTimeout)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, errors.New("api base url is empty"))
	}
	if strings.TrimSpace(c.SessionDB) == "" {
		errs = append(errs, errors.New("session db path is empty"))
	}
	if c.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("connect timeout %s is negative", c.ConnectTimeout))
	}
	return errors.Join(errs...)
}
