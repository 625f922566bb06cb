package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the pat tool configuration
type Config struct {
	Server  Server  `yaml:"server"`
	Archive Archive `yaml:"archive"`
	Decode  Decode  `yaml:"decode"`
	Logging Logging `yaml:"logging"`
}

// Server contains HTTP decode service configuration
type Server struct {
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	APIKey string `yaml:"api_key"`
}

// Archive contains session archive configuration
type Archive struct {
	Path string `yaml:"path"`
}

// Decode contains measurement interpretation tunables
type Decode struct {
	// CurrentScale multiplies rescaled current and leakage values. Zero
	// leaves the raw rescaled units in place.
	CurrentScale float64 `yaml:"current_scale"`
	// InsulationCapMohm caps reported earth-insulation resistance. Zero
	// disables the cap.
	InsulationCapMohm float64 `yaml:"insulation_cap_mohm"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Port: 8080,
			Bind: "127.0.0.1",
		},
		Archive: Archive{
			Path: "./pat-archive",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from the specified path, layered over the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./pat.yaml"
	}
	return filepath.Join(homeDir, ".config", "pat", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
