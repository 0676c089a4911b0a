// Package config loads jvx settings: an embedded default configuration with
// an optional user YAML file decoded over it.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// DefaultConfigYAML returns a copy of the embedded default config.
func DefaultConfigYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Config is the merged configuration.
type Config struct {
	App    AppConfig    `yaml:"app"`
	UI     UIConfig     `yaml:"ui"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// UIConfig holds terminal viewer settings.
type UIConfig struct {
	Theme         string                 `yaml:"theme"`
	Keymap        string                 `yaml:"keymap"`
	Indent        int                    `yaml:"indent"`
	Overscan      int                    `yaml:"overscan"`
	MaxValueWidth int                    `yaml:"max_value_width"`
	Search        SearchConfig           `yaml:"search"`
	Themes        map[string]ThemeConfig `yaml:"themes"`
}

// SearchConfig holds search settings shared by all viewers.
type SearchConfig struct {
	InvalidPattern string `yaml:"invalid_pattern"`
}

// ServerConfig holds browser viewer settings.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	RowHeight     int           `yaml:"row_height"`
	Overscan      int           `yaml:"overscan"`
	SessionSecret string        `yaml:"session_secret"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`
	MaxSessions   int           `yaml:"max_sessions"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the embedded configuration.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, errors.New("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/jvx/config.yaml, falling back to
// ~/.config/jvx/config.yaml. It returns "" when neither can be determined.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "jvx", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "jvx", "config.yaml")
}

// Load returns the defaults merged with the user file at path. An empty path
// means DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Merge(&cfg, data); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Merge decodes data over cfg. Unknown keys are rejected. Themes merge field
// by field with the theme of the same name.
func Merge(cfg *Config, data []byte) error {
	base := cfg.UI.Themes
	cfg.UI.Themes = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		cfg.UI.Themes = base
		return fmt.Errorf("decode config: %w", err)
	}

	user := cfg.UI.Themes
	cfg.UI.Themes = make(map[string]ThemeConfig, len(base)+len(user))
	for name, th := range base {
		cfg.UI.Themes[name] = th
	}
	for name, th := range user {
		cfg.UI.Themes[name] = MergeTheme(base[name], th)
	}
	return cfg.Validate()
}

// Validate checks enumerated and numeric settings.
func (c Config) Validate() error {
	var errs []error
	if _, ok := c.UI.Themes[c.UI.Theme]; !ok {
		errs = append(errs, fmt.Errorf("ui.theme: unknown theme %q (available: %s)", c.UI.Theme, strings.Join(c.ThemeNames(), ", ")))
	}
	switch c.UI.Keymap {
	case "vim", "emacs", "function":
	default:
		errs = append(errs, fmt.Errorf("ui.keymap: invalid value %q: valid values are vim, emacs, function", c.UI.Keymap))
	}
	switch c.UI.Search.InvalidPattern {
	case "", "literal", "error":
	default:
		errs = append(errs, fmt.Errorf("ui.search.invalid_pattern: invalid value %q: valid values are literal, error", c.UI.Search.InvalidPattern))
	}
	if c.UI.Indent < 0 || c.UI.Overscan < 0 || c.UI.MaxValueWidth < 0 {
		errs = append(errs, errors.New("ui: indent, overscan and max_value_width must not be negative"))
	}
	if c.Server.RowHeight <= 0 {
		errs = append(errs, errors.New("server.row_height must be positive"))
	}
	if c.Server.Overscan < 0 {
		errs = append(errs, errors.New("server.overscan must not be negative"))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, errors.New("server.max_sessions must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: invalid value %q: valid values are debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// ThemeNames returns the configured theme names, sorted.
func (c Config) ThemeNames() []string {
	names := make([]string, 0, len(c.UI.Themes))
	for name := range c.UI.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// YAML renders the configuration as YAML.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
