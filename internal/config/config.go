// Package config loads visionary's settings from a YAML file in the
// platform config directory, with environment and flag overrides layered
// on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	// EnvAPIKey is the environment override for the backend API key.
	EnvAPIKey = "FAL_KEY"

	// EnvConfigDir overrides the config directory, used by tests.
	EnvConfigDir = "VISIONARY_CONFIG_DIR"

	configFile = "config.yaml"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	APIKey     string  `yaml:"api_key"`
	BaseURL    string  `yaml:"base_url"`
	TimeoutSec int     `yaml:"timeout_seconds"`
	History    History `yaml:"history"`
}

// History selects where the generation history lives.
type History struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Dir returns the platform-specific config directory.
func Dir() (string, error) {
	if testDir := os.Getenv(EnvConfigDir); testDir != "" {
		return testDir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "visionary"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "visionary"), nil
	default: // linux and others, per the XDG base directory spec
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "visionary"), nil
	}
}

// Load reads the config file, applies defaults, and overlays the API key
// from the environment. A missing file yields the defaults, not an error.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", configFile, err)
	}

	cfg.applyDefaults(dir)

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.APIKey = key
	}

	return cfg, nil
}

func (c *Config) applyDefaults(dir string) {
	if c.History.Backend == "" {
		c.History.Backend = BackendFile
	}
	if c.History.Path == "" {
		switch c.History.Backend {
		case BackendSQLite:
			c.History.Path = filepath.Join(dir, "history.db")
		default:
			c.History.Path = filepath.Join(dir, "history.json")
		}
	}
}

// Validate rejects settings that cannot produce a working store.
func (c *Config) Validate() error {
	switch c.History.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
		return nil
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
}

// Save writes the config back to the config directory with restricted
// permissions; the file can hold the API key.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, configFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configFile, err)
	}
	return nil
}
