// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the idmapd daemon configuration.
//
// This covers the daemon surface only: logging, backend selection, the
// admin API and metrics. The identity schema itself (directory server
// address, object classes, attribute names, cache TTL) lives in its own
// conf file referenced by Idmap.ConfPath and is parsed by pkg/idmap.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (IDMAPD_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Idmap selects and configures the identity backend
	Idmap IdmapConfig `mapstructure:"idmap" yaml:"idmap"`

	// API configures the admin HTTP server
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Metrics enables Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// IdmapConfig selects the identity backend.
type IdmapConfig struct {
	// Source selects the backend: "directory" queries an LDAP server
	// using the schema conf file, "local" resolves against the OS
	// account database.
	Source string `mapstructure:"source" validate:"required,oneof=directory local" yaml:"source"`

	// ConfPath is the path to the identity schema conf file
	// (key = value format). Empty uses the schema defaults, which only
	// makes sense for the local source.
	ConfPath string `mapstructure:"conf_path" yaml:"conf_path,omitempty"`

	// LocalDomain is the NFS domain of this client. Principals are
	// validated and synthesized against it.
	LocalDomain string `mapstructure:"local_domain" validate:"required" yaml:"local_domain"`
}

// APIConfig configures the admin HTTP server.
type APIConfig struct {
	// Enabled controls whether the admin API is served
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the host:port the server binds
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port" yaml:"listen,omitempty"`
}

// MetricsConfig enables Prometheus metrics.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty, in which case the default location
// ($XDG_CONFIG_HOME/idmapd/config.yaml) is searched and missing files
// fall back to pure defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format. Used by 'idmapd config init' to seed a starting file.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Owner-only permissions; the referenced schema conf may carry
	// bind credentials and this file points at it.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: IDMAPD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("IDMAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to
// the current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "idmapd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "idmapd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
