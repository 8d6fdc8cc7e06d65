// Package config loads the optional pciscope configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user defaults read from ~/.config/pciscope/config.yaml.
// Command-line flags override everything here.
type Config struct {
	PCIIDsPath string `yaml:"pci_ids_path"`
	Color      *bool  `yaml:"color"`
	Verbosity  int    `yaml:"verbosity"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pciscope", "config.yaml")
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file yields a zero Config and no error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
