// Package config loads the engine's own tunables — the knobs spec.md §4.5
// names (max_parallelism, wave_size_cap, access_set_cap,
// run_optimistic_prepass, deterministic_single_thread_mode) plus the
// logging level operators expect alongside them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lightchain-engine/pte/pkg/execution"
)

// Config is the on-disk shape for cmd/ptebench and cmd/ptectl. It mirrors
// execution.Config field-for-field rather than embedding it, so the YAML
// tags stay independent of the library type's own evolution.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Execution ExecutionConfig `yaml:"execution"`
}

// ExecutionConfig is the YAML-facing mirror of execution.Config.
type ExecutionConfig struct {
	MaxParallelism int `yaml:"max_parallelism"`
	WaveSizeCap    int `yaml:"wave_size_cap"`
	AccessSetCap   int `yaml:"access_set_cap"`

	RunOptimisticPrepass          bool `yaml:"run_optimistic_prepass"`
	DeterministicSingleThreadMode bool `yaml:"deterministic_single_thread_mode"`
}

// Default returns the configuration DefaultConfig would produce, rendered
// into the YAML-facing shape.
func Default() *Config {
	d := execution.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Execution: ExecutionConfig{
			MaxParallelism:                d.MaxParallelism,
			WaveSizeCap:                   d.WaveSizeCap,
			AccessSetCap:                  d.AccessSetCap,
			RunOptimisticPrepass:          d.RunOptimisticPrepass,
			DeterministicSingleThreadMode: d.DeterministicSingleThreadMode,
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Execution.MaxParallelism < 0 {
		return fmt.Errorf("execution.max_parallelism must be >= 0")
	}
	if c.Execution.WaveSizeCap < 0 {
		return fmt.Errorf("execution.wave_size_cap must be >= 0")
	}
	if c.Execution.AccessSetCap < 0 {
		return fmt.Errorf("execution.access_set_cap must be >= 0")
	}
	return nil
}

// ToExecutionConfig builds the execution.Config this Config describes.
func (c *Config) ToExecutionConfig() *execution.Config {
	return &execution.Config{
		MaxParallelism:                c.Execution.MaxParallelism,
		WaveSizeCap:                   c.Execution.WaveSizeCap,
		AccessSetCap:                  c.Execution.AccessSetCap,
		RunOptimisticPrepass:          c.Execution.RunOptimisticPrepass,
		DeterministicSingleThreadMode: c.Execution.DeterministicSingleThreadMode,
	}
}
