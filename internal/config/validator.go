package config

import (
	"fmt"
	"strings"
)

// Validator checks a configuration for issues before anything is wired up.
type Validator struct {
	errors   []string
	warnings []string
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate checks the configuration for issues
func (v *Validator) Validate(cfg *AppConfig) error {
	v.errors = []string{}
	v.warnings = []string{}

	v.validateLog(cfg)
	v.validateHub(cfg)
	v.validateMetrics(cfg)
	v.validateSinks(cfg)

	if len(v.warnings) > 0 {
		for _, w := range v.warnings {
			fmt.Printf("config warning: %s\n", w)
		}
	}
	if len(v.errors) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(v.errors, "\n  - "))
	}
	return nil
}

func (v *Validator) validateLog(cfg *AppConfig) {
	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		v.warnings = append(v.warnings, fmt.Sprintf("unknown log level %q, will fall back to info", cfg.Log.Level))
	}
}

func (v *Validator) validateHub(cfg *AppConfig) {
	if cfg.Hub.CallbackTimeout < 0 {
		v.errors = append(v.errors, "hub.callback_timeout must not be negative")
	}
}

func (v *Validator) validateMetrics(cfg *AppConfig) {
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "" {
		v.errors = append(v.errors, "metrics.listen_addr is required when metrics are enabled")
	}
}

func (v *Validator) validateSinks(cfg *AppConfig) {
	if cfg.Sinks.File.Enabled && cfg.Sinks.File.Path == "" {
		v.errors = append(v.errors, "sinks.file.path is required when the file sink is enabled")
	}
}
