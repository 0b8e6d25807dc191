// Package config loads the optional dovitool configuration file. All
// settings have working defaults; the file only overrides them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Convert contains defaults for the convert command.
type Convert struct {
	// Mode is the default conversion mode: 0 keeps the profile,
	// 1 rewrites FEL to MEL, 2 targets profile 8.1, 3 converts
	// profile 5 to 8.1.
	Mode int `toml:"mode"`
}

// Output contains defaults for written RPU files.
type Output struct {
	Gzip bool `toml:"gzip"`
}

// Performance contains worker pool and progress reporting settings.
type Performance struct {
	// Workers bounds the conversion worker pool; 0 means one worker
	// per CPU.
	Workers int `toml:"workers"`

	// Progress controls the progress bar: auto, always or never.
	Progress string `toml:"progress"`
}

// Config is the full dovitool configuration.
type Config struct {
	Convert     Convert     `toml:"convert"`
	Output      Output      `toml:"output"`
	Performance Performance `toml:"performance"`
}

const defaultProgress = "auto"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Convert:     Convert{Mode: 2},
		Performance: Performance{Progress: defaultProgress},
	}
}

// DefaultConfigPath returns the conventional config location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dovitool", "config.toml"), nil
}

// Load reads the config at path, falling back to the default location
// when path is empty. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return &cfg, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Convert.Mode < 0 || c.Convert.Mode > 3 {
		return fmt.Errorf("convert.mode %d out of range 0-3", c.Convert.Mode)
	}
	if c.Performance.Workers < 0 {
		return fmt.Errorf("performance.workers must not be negative")
	}
	switch c.Performance.Progress {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("performance.progress %q must be auto, always or never", c.Performance.Progress)
	}
	return nil
}
