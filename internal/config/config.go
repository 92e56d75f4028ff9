// Package config loads the jsondb configuration from a YAML or TOML file.
// Environment variables in the format ${VAR_NAME} are expanded before
// decoding.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete jsondb configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Console  ConsoleConfig  `yaml:"console" toml:"console"`
}

// DatabaseConfig holds the database directory and journal switch
type DatabaseConfig struct {
	Dir     string `yaml:"dir" toml:"dir" validate:"required"`
	Journal bool   `yaml:"journal" toml:"journal"`
}

// LoggingConfig holds logging configuration. SeqURL is optional; when empty
// logs only go to the console.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	SeqURL string `yaml:"seq_url" toml:"seq_url" validate:"omitempty,url"`
}

// MetricsConfig holds query metrics configuration
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace" validate:"required_if=Enabled true"`
}

// ConsoleConfig holds interactive console settings
type ConsoleConfig struct {
	Color  bool   `yaml:"color" toml:"color"`
	Prompt string `yaml:"prompt" toml:"prompt"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Dir: "data", Journal: true},
		Logging:  LoggingConfig{Level: "info"},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "jsondb"},
		Console:  ConsoleConfig{Color: true, Prompt: "jsondb> "},
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads a configuration file and returns it merged over Default.
// The format is chosen by extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	expanded := expandEnvVars(string(raw))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or an empty
// string when it is unset
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks field constraints
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// SlogLevel maps the configured level name to a slog.Level
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
