// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/sacenox/relay/internal/handoff"
)

// Default model when neither config nor flags name one.
const DefaultModel = "claude-sonnet-4"

// Config is the root configuration structure.
type Config struct {
	Model    string          `toml:"model"`
	Endpoint string          `toml:"endpoint"`
	DBPath   string          `toml:"db_path"`
	Budgets  handoff.Budgets `toml:"budgets"`
}

// Load reads configuration from a TOML file and applies environment variable
// overrides. An empty path loads ~/.config/relay/config.toml; a missing file
// at the default location yields defaults, an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint != "" {
		if err := validateEndpoint(c.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("endpoint=%q is invalid: %v", c.Endpoint, err))
		}
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateEndpoint(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("missing scheme or host")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"RELAY_MODEL", func(v string) {
			if v != "" {
				cfg.Model = v
			}
		}},
		{"RELAY_ENDPOINT", func(v string) {
			if v != "" {
				cfg.Endpoint = v
			}
		}},
		{"RELAY_DB", func(v string) {
			if v != "" {
				cfg.DBPath = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.Budgets = cfg.Budgets.WithDefaults()
}

// DefaultDBPath returns the session database path used when none is
// configured (~/.config/relay/sessions.db).
func DefaultDBPath() (string, error) {
	dir, err := EnsureDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// DataDir returns the path to the relay data directory (~/.config/relay).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "relay"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
