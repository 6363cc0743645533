package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyIdmapDefaults(&cfg.Idmap)
	applyAPIDefaults(&cfg.API)
}

// GetDefaultConfig returns a configuration with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyIdmapDefaults(cfg *IdmapConfig) {
	if cfg.Source == "" {
		cfg.Source = "local"
	}
	if cfg.LocalDomain == "" {
		cfg.LocalDomain = "localdomain"
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	// Enabled defaults to false (opt-in)
	if cfg.Enabled && cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8045"
	}
}
