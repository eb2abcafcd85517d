package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const appName = "dupelink"

// configNames are searched, in order, below the XDG config directories
var configNames = []string{"config.yaml", "config.yml", "config.toml"}

// LoadFromFile loads configuration from a YAML or TOML file; the format
// follows the extension
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a YAML or TOML file
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := Marshal(cfg, path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal encodes cfg in the format implied by path's extension
func Marshal(cfg *Config, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/dupelink/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configNames[0])
}

// FindConfigFile returns the first existing config file in the XDG config
// directories, or fs.ErrNotExist
func FindConfigFile() (string, error) {
	for _, name := range configNames {
		path, err := xdg.SearchConfigFile(filepath.Join(appName, name))
		if err == nil {
			return path, nil
		}
	}
	return "", fs.ErrNotExist
}

// LoadDefault loads the configuration found by FindConfigFile, or the
// default configuration when there is none
func LoadDefault() (*Config, string, error) {
	path, err := FindConfigFile()
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), "", nil
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
