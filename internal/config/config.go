// Package config loads the kernel's runtime configuration from a YAML
// file with environment variable overrides, matching the teacher's
// config-loader shape.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the kernel's full runtime configuration.
type Config struct {
	Kernel  KernelConfig  `yaml:"kernel"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Trace   TraceConfig   `yaml:"trace"`
}

// KernelConfig bounds the execution model's core limits.
type KernelConfig struct {
	MaxCallDepth  int    `yaml:"max_call_depth"`
	CostUnitLimit uint64 `yaml:"cost_unit_limit"`
	FeeReserve    uint64 `yaml:"fee_reserve"`
}

// LoggingConfig selects the zerolog level/format the host binary uses
// both for its own diagnostics and for draining emit_log entries.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TraceConfig controls the websocket execution-trace debug endpoint.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads config from a YAML file, applies environment variable
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if v := os.Getenv("RADIXKERNEL_MAX_CALL_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: RADIXKERNEL_MAX_CALL_DEPTH: %w", err)
		}
		cfg.Kernel.MaxCallDepth = n
	}
	if v := os.Getenv("RADIXKERNEL_COST_UNIT_LIMIT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: RADIXKERNEL_COST_UNIT_LIMIT: %w", err)
		}
		cfg.Kernel.CostUnitLimit = n
	}
	if v := os.Getenv("RADIXKERNEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Kernel.MaxCallDepth <= 0 {
		return fmt.Errorf("kernel.max_call_depth must be positive")
	}
	if c.Kernel.CostUnitLimit == 0 {
		return fmt.Errorf("kernel.cost_unit_limit must be positive")
	}
	switch c.Logging.Level {
	case "", "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

// Default returns a conservative configuration suitable for local
// development and tests.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			MaxCallDepth:  16,
			CostUnitLimit: 10_000_000,
			FeeReserve:    100_000,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9100"},
		Trace:   TraceConfig{Enabled: false, Addr: ":9101"},
	}
}
