package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the host application configuration
type Config struct {
	Version    int        `toml:"version"`
	PluginDirs []string   `toml:"plugin_dirs"` // directories containing plugin bundles
	UISettings UISettings `toml:"ui"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	MaxResults      int `toml:"max_results"`
	RenderTimeoutMS int `toml:"render_timeout_ms"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Version:    1,
		PluginDirs: nil,
		UISettings: UISettings{
			MaxResults:      10,
			RenderTimeoutMS: 3000,
		},
	}
}

// Service handles configuration management
type Service interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

// service is the concrete implementation
type service struct {
	filePath string
}

// NewService creates a config service rooted in the user config dir
func NewService() Service {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}

	lumenDir := filepath.Join(configDir, "lumen")
	os.MkdirAll(lumenDir, 0755)

	return &service{
		filePath: filepath.Join(lumenDir, "config.toml"),
	}
}

// NewServiceAt creates a config service bound to an explicit file path
func NewServiceAt(path string) Service {
	return &service{filePath: path}
}

// Load loads the configuration from file
func (s *service) Load() (*Config, error) {
	return s.LoadFromPath(s.filePath)
}

// Save saves the configuration to file
func (s *service) Save(cfg *Config) error {
	return s.SaveToPath(cfg, s.filePath)
}

// LoadFromPath loads configuration from a specific path
func (s *service) LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.UISettings.MaxResults <= 0 {
		cfg.UISettings.MaxResults = 10
	}
	if cfg.UISettings.RenderTimeoutMS <= 0 {
		cfg.UISettings.RenderTimeoutMS = 3000
	}

	return &cfg, nil
}

// SaveToPath saves configuration to a specific path
func (s *service) SaveToPath(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
