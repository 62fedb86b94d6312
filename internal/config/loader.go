package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type HubConfig struct {
	// InitialState is the value reads observe before the first publish.
	InitialState string `mapstructure:"initial_state" yaml:"initial_state"`
	// HistorySize bounds the retained notification history; negative disables it.
	HistorySize        int    `mapstructure:"history_size" yaml:"history_size"`
	CallbackTimeoutRaw string `mapstructure:"callback_timeout" yaml:"callback_timeout,omitempty"`

	CallbackTimeout time.Duration `mapstructure:"-" yaml:"-"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"` // e.g., 0.0.0.0:9090
}

type ConsoleSinkConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type FileSinkConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type SinksConfig struct {
	Console ConsoleSinkConfig `mapstructure:"console" yaml:"console"`
	File    FileSinkConfig    `mapstructure:"file" yaml:"file"`
}

type AppConfig struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Hub     HubConfig     `mapstructure:"hub" yaml:"hub"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Sinks   SinksConfig   `mapstructure:"sinks" yaml:"sinks"`
}

// Default returns the configuration used when no file is supplied.
func Default() *AppConfig {
	cfg := &AppConfig{
		Log: LogConfig{Level: "info"},
		Hub: HubConfig{
			HistorySize:     128,
			CallbackTimeout: 0, // unbounded unless the caller opts in
		},
		Metrics: MetricsConfig{Enabled: false, ListenAddr: ":9095"},
		Sinks: SinksConfig{
			Console: ConsoleSinkConfig{Enabled: true},
		},
	}
	return cfg
}

func (c *HubConfig) normalize() error {
	if c.CallbackTimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(c.CallbackTimeoutRaw)
	if err != nil {
		return fmt.Errorf("invalid hub.callback_timeout: %w", err)
	}
	c.CallbackTimeout = d
	return nil
}

// Load reads a YAML configuration file, applies environment overrides,
// normalizes durations, and validates the result.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Hub.normalize(); err != nil {
		return nil, err
	}

	validator := NewValidator()
	if err := validator.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// YAML renders the effective configuration for the startup summary.
func (c *AppConfig) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
