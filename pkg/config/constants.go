package config

import "time"

// Default values and limits for pyocd-probe
const (
	// Tool invocation
	DefaultToolPath       = "pyocd"
	DefaultTimeout        = 60 * time.Second // Watchdog for a single pyocd invocation
	DefaultExpectedMajor  = 1                // Envelope format major version
	DefaultMinimumVersion = "0.30.0"         // Oldest pyocd release with "json --probes"

	// Runner backends
	BackendLocal     = "local"
	BackendContainer = "container"

	// Container resource limits
	DefaultContainerImage   = "pyocd/pyocd:latest"
	DefaultContainerMemory  = "256m"
	DefaultContainerCPUs    = 1
	DefaultContainerNetwork = "none"

	// Persistence
	DefaultInventoryPath = "pyocd-inventory.db"
	DefaultAuditLogPath  = "pyocd-audit.log"

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	// Config file discovery
	ConfigName = "pyocd-probe.config"
	ConfigType = "yaml"
	EnvPrefix  = "PYOCD_PROBE"
)
