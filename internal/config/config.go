// Package config loads the yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotConfigured reports a config without server credentials. A default
// file has been written; the user has to fill it in.
var ErrNotConfigured = errors.New("server_url and api_key must be set in the config file")

// Config holds the application configuration.
type Config struct {
	ServerURL       string `yaml:"server_url"`
	APIKey          string `yaml:"api_key"`
	Theme           string `yaml:"theme"`
	CacheDir        string `yaml:"cache_dir"`
	DeviceIndex     int    `yaml:"device_index"`
	SeekStepSeconds int    `yaml:"seek_step_seconds"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Theme:           "tokyo-night",
		CacheDir:        defaultCacheDir(),
		DeviceIndex:     -1,
		SeekStepSeconds: 5,
	}
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv("SHELFPLAYER_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "shelfplayer", "config.yml"), nil
}

// Load reads the config file at path. A missing file is created with
// defaults; in that case, and whenever credentials are absent,
// ErrNotConfigured is returned alongside the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := writeTemplate(cfg, path); err != nil {
			return cfg, err
		}
		return cfg, ErrNotConfigured
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.ServerURL == "" || cfg.APIKey == "" {
		return cfg, ErrNotConfigured
	}
	if cfg.SeekStepSeconds <= 0 {
		cfg.SeekStepSeconds = 5
	}
	return cfg, nil
}

// writeTemplate writes a commented first-run config.
func writeTemplate(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	template := fmt.Sprintf(`# shelfplayer configuration

# Audiobookshelf server, e.g. https://audiobooks.example.com
server_url: ""

# API key from the server's user settings
api_key: ""

# tokyo-night or catppuccin-mocha
theme: %s

# Where downloaded tracks and covers are stored
cache_dir: %s

# PortAudio output device index, -1 for the default device
device_index: %d

seek_step_seconds: %d
`, cfg.Theme, cfg.CacheDir, cfg.DeviceIndex, cfg.SeekStepSeconds)

	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "shelfplayer")
	}
	return filepath.Join(dir, "shelfplayer")
}
