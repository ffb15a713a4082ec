package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// SaveConfig saves configuration to YAML file
func SaveConfig(cfg *Config, configPath string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// ReadFile parses a YAML configuration file on top of the defaults.
func ReadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	name := ConfigName + "." + ConfigType

	// Check for config file in current directory first
	if _, err := os.Stat(name); err == nil {
		return name
	}

	// Check home directory
	if home, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(home, "."+name)
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}

	// Default to current directory
	return name
}
