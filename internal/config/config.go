// Package config loads acdb settings from defaults, an optional YAML file
// and ACDB_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/acdb/internal/enrich"
	"github.com/dreamware/acdb/internal/scheduler"
	"github.com/dreamware/acdb/internal/transport"
)

// Environment variable names.
const (
	EnvConfigFile  = "ACDB_CONFIG"
	EnvBaseURL     = "ACDB_BASE_URL"
	EnvListen      = "ACDB_LISTEN"
	EnvTimeout     = "ACDB_TIMEOUT"
	EnvConcurrency = "ACDB_CONCURRENCY"
	EnvTypesPath   = "ACDB_TYPES_PATH"
	EnvLogLevel    = "ACDB_LOG_LEVEL"
	EnvHealth      = "ACDB_HEALTH_INTERVAL"
)

// Config holds all runtime settings.
type Config struct {
	// BaseURL is the location of the database, e.g. "http://host/db2".
	BaseURL string `yaml:"base_url"`
	// Listen is the address the HTTP API binds to.
	Listen string `yaml:"listen"`
	// Timeout bounds each shard fetch.
	Timeout time.Duration `yaml:"timeout"`
	// Concurrency is the number of shard fetches allowed in flight.
	Concurrency int `yaml:"concurrency"`
	// TypesPath locates the aircraft type table relative to BaseURL.
	TypesPath string `yaml:"types_path"`
	// LogLevel is the logr verbosity; 1 logs every shard fetch.
	LogLevel int `yaml:"log_level"`
	// HealthInterval is the database probe period. Zero disables probing.
	HealthInterval time.Duration `yaml:"health_interval"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:8080/db2",
		Listen:         ":8090",
		Timeout:        transport.DefaultTimeout,
		Concurrency:    scheduler.DefaultConcurrency,
		TypesPath:      enrich.DefaultTypesPath,
		HealthInterval: time.Minute,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $ACDB_CONFIG when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = getenv(EnvBaseURL, c.BaseURL)
	c.Listen = getenv(EnvListen, c.Listen)
	c.TypesPath = getenv(EnvTypesPath, c.TypesPath)

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvHealth); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHealth, err)
		}
		c.HealthInterval = d
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.LogLevel = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base_url is required")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	case c.Concurrency < 1:
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	case c.TypesPath == "":
		return errors.New("types_path is required")
	case c.LogLevel < 0:
		return fmt.Errorf("log_level must not be negative, got %d", c.LogLevel)
	case c.HealthInterval < 0:
		return fmt.Errorf("health_interval must not be negative, got %s", c.HealthInterval)
	}
	return nil
}

// getenv returns the value of k, or def when k is unset or empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
