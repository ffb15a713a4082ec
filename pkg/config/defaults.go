package config

import (
	"github.com/spf13/viper"
)

// SetDefaults registers every default configuration value in v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	// Tool defaults
	v.SetDefault("tool.path", d.Tool.Path)
	v.SetDefault("tool.timeout_seconds", d.Tool.TimeoutSeconds)
	v.SetDefault("tool.expected_major", d.Tool.ExpectedMajor)
	v.SetDefault("tool.minimum_version", d.Tool.MinimumVersion)

	// Runner defaults
	v.SetDefault("runner.backend", d.Runner.Backend)

	// Container defaults
	v.SetDefault("container.image", d.Container.Image)
	v.SetDefault("container.devices", d.Container.Devices)
	v.SetDefault("container.memory_limit", d.Container.MemoryLimit)
	v.SetDefault("container.cpu_limit", d.Container.CPULimit)
	v.SetDefault("container.network", d.Container.Network)

	// Persistence defaults
	v.SetDefault("inventory.enabled", d.Inventory.Enabled)
	v.SetDefault("inventory.path", d.Inventory.Path)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.path", d.Audit.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)

	// Output defaults
	v.SetDefault("output.json", d.Output.JSON)
	v.SetDefault("output.sort", d.Output.Sort)
}

// SetViperDefaults registers the defaults on the global viper instance.
func SetViperDefaults() {
	SetDefaults(viper.GetViper())
}
