package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules. Log level normalization happens in ApplyDefaults, not here;
// validation accepts both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The directory source cannot work without a schema conf file
	// naming the server; the local source can run on pure defaults.
	if cfg.Idmap.Source == "directory" {
		if cfg.Idmap.ConfPath == "" {
			return fmt.Errorf("idmap: conf_path is required when source is \"directory\"")
		}
		if _, err := os.Stat(cfg.Idmap.ConfPath); err != nil {
			return fmt.Errorf("idmap: conf_path %q: %w", cfg.Idmap.ConfPath, err)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
