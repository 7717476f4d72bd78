// Package config provides YAML configuration for attnviz.
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/model"
	"attnviz/pkg/render"
)

// Color modes for the shell.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the startup state and the settings of each surface.
type Config struct {
	// Text is the initial input.
	Text string `yaml:"text"`

	Hyperparameters model.Hyperparameters `yaml:"hyperparameters"`

	// Seed for sampling and dropout. 0 seeds from the clock, so every run differs.
	Seed int64 `yaml:"seed"`

	Server ServerConfig `yaml:"server"`
	Shell  ShellConfig  `yaml:"shell"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig configures the HTTP and websocket surface.
type ServerConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ShellConfig configures the interactive shell.
type ShellConfig struct {
	// HistoryFile is where readline keeps command history. Empty disables history.
	HistoryFile string `yaml:"history_file"`

	// Color is one of auto, always, never.
	Color string `yaml:"color"`
}

// UseColor resolves the color mode given whether output is a terminal.
func (s ShellConfig) UseColor(isTTY bool) bool {
	switch s.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTTY
	}
}

// RenderConfig configures formula and terminal previews.
type RenderConfig struct {
	PreviewColumns int `yaml:"preview_columns"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Text:            "The quick brown fox",
		Hyperparameters: model.DefaultHyperparameters(),
		Server: ServerConfig{
			Enabled:     false,
			Host:        "localhost",
			Port:        8081,
			CORSOrigins: []string{"*"},
		},
		Shell: ShellConfig{
			HistoryFile: "",
			Color:       ColorAuto,
		},
		Render: RenderConfig{
			PreviewColumns: render.DefaultPreviewColumns,
		},
	}
}

// Validate checks values a surface cannot start with.
func (c *Config) Validate() error {
	if err := c.Hyperparameters.Validate(); err != nil {
		return aerrors.Wrap(err, aerrors.ErrConfigInvalid, aerrors.CategoryConfig, "invalid hyperparameters").
			WithSuggestion("Check the hyperparameters section of the config file")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return aerrors.Newf(aerrors.ErrConfigInvalid, aerrors.CategoryConfig,
			"server port %d is out of range", c.Server.Port).
			WithContext("port", strconv.Itoa(c.Server.Port))
	}
	switch c.Shell.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return aerrors.Newf(aerrors.ErrConfigInvalid, aerrors.CategoryConfig,
			"unknown shell color mode %q", c.Shell.Color).
			WithSuggestion("Use one of: auto, always, never")
	}
	if c.Render.PreviewColumns < 1 {
		return aerrors.Newf(aerrors.ErrConfigInvalid, aerrors.CategoryConfig,
			"preview_columns must be at least 1, got %d", c.Render.PreviewColumns)
	}
	return nil
}

// Load reads, parses and validates a config file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, aerrors.Wrap(err, aerrors.ErrConfigNotFound, aerrors.CategoryConfig, "config file not found").
				WithContext("path", path).
				WithSuggestion("Run with -init to create a default config")
		}
		return nil, aerrors.Wrap(err, aerrors.ErrConfigNotFound, aerrors.CategoryConfig, "failed to read config").
			WithContext("path", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, aerrors.Wrap(err, aerrors.ErrConfigParseFailed, aerrors.CategoryConfig, "failed to parse config").
			WithContext("path", path)
	}

	if err := cfg.Validate(); err != nil {
		if ae, ok := aerrors.AsAttnError(err); ok {
			return nil, ae.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default() when path is empty or
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	return Load(path)
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return aerrors.Wrap(err, aerrors.ErrConfigWriteFailed, aerrors.CategoryConfig, "failed to create config directory").
			WithContext("path", dir)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return aerrors.Wrap(err, aerrors.ErrConfigWriteFailed, aerrors.CategoryConfig, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return aerrors.Wrap(err, aerrors.ErrConfigWriteFailed, aerrors.CategoryConfig, "failed to write config file").
			WithContext("path", path)
	}
	return nil
}

// DefaultConfigPath returns the config file path to use when none is given.
func DefaultConfigPath() string {
	if _, err := os.Stat("attnviz.yaml"); err == nil {
		return "attnviz.yaml"
	}
	if _, err := os.Stat("config/attnviz.yaml"); err == nil {
		return "config/attnviz.yaml"
	}
	return "attnviz.yaml"
}

// InitConfig writes a default config to path unless one already exists.
// It reports whether a file was created.
func InitConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := Default().Save(path); err != nil {
		return false, err
	}
	return true, nil
}
