// Package config holds the pyocd-probe configuration: defaults, loading
// through viper and validation.
package config

import (
	"strings"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the complete configuration tree. Keys match the YAML file.
type Config struct {
	Tool      ToolConfig      `mapstructure:"tool" yaml:"tool"`
	Runner    RunnerConfig    `mapstructure:"runner" yaml:"runner"`
	Container ContainerConfig `mapstructure:"container" yaml:"container"`
	Inventory InventoryConfig `mapstructure:"inventory" yaml:"inventory"`
	Audit     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
}

// ToolConfig describes how pyocd is invoked.
type ToolConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	ExpectedMajor  uint64 `mapstructure:"expected_major" yaml:"expected_major"`
	MinimumVersion string `mapstructure:"minimum_version" yaml:"minimum_version"`
}

// Timeout returns the invocation watchdog as a duration.
func (t ToolConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

type RunnerConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type ContainerConfig struct {
	Image       string   `mapstructure:"image" yaml:"image"`
	Devices     []string `mapstructure:"devices" yaml:"devices"`
	MemoryLimit string   `mapstructure:"memory_limit" yaml:"memory_limit"`
	CPULimit    int      `mapstructure:"cpu_limit" yaml:"cpu_limit"`
	Network     string   `mapstructure:"network" yaml:"network"`
}

type InventoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

type OutputConfig struct {
	JSON bool `mapstructure:"json" yaml:"json"`
	Sort bool `mapstructure:"sort" yaml:"sort"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Tool: ToolConfig{
			Path:           DefaultToolPath,
			TimeoutSeconds: int(DefaultTimeout.Seconds()),
			ExpectedMajor:  DefaultExpectedMajor,
			MinimumVersion: DefaultMinimumVersion,
		},
		Runner: RunnerConfig{Backend: BackendLocal},
		Container: ContainerConfig{
			Image:       DefaultContainerImage,
			Devices:     []string{},
			MemoryLimit: DefaultContainerMemory,
			CPULimit:    DefaultContainerCPUs,
			Network:     DefaultContainerNetwork,
		},
		Inventory: InventoryConfig{Enabled: false, Path: DefaultInventoryPath},
		Audit:     AuditConfig{Enabled: false, Path: DefaultAuditLogPath},
		Logging:   LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Output:    OutputConfig{},
	}
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, perrors.Wrap(perrors.KindConfig, "cannot decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the runner or service could not work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tool.Path) == "" {
		return perrors.New(perrors.KindConfig, "tool.path must not be empty")
	}
	if c.Tool.TimeoutSeconds <= 0 {
		return perrors.Newf(perrors.KindConfig, "tool.timeout_seconds must be positive, got %d", c.Tool.TimeoutSeconds)
	}
	if c.Tool.ExpectedMajor == 0 {
		return perrors.New(perrors.KindConfig, "tool.expected_major must be at least 1")
	}

	switch c.Runner.Backend {
	case BackendLocal:
	case BackendContainer:
		if strings.TrimSpace(c.Container.Image) == "" {
			return perrors.New(perrors.KindConfig, "container.image is required for the container backend")
		}
		if c.Container.CPULimit < 0 {
			return perrors.Newf(perrors.KindConfig, "container.cpu_limit must not be negative, got %d", c.Container.CPULimit)
		}
	default:
		return perrors.Newf(perrors.KindConfig, "unknown runner.backend %q (want %s or %s)", c.Runner.Backend, BackendLocal, BackendContainer)
	}

	if c.Inventory.Enabled && c.Inventory.Path == "" {
		return perrors.New(perrors.KindConfig, "inventory.path is required when the inventory is enabled")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return perrors.New(perrors.KindConfig, "audit.path is required when auditing is enabled")
	}
	return nil
}
