// Package config loads parley's configuration from ~/.parley/config.yaml.
// A missing file yields the defaults; a malformed file is an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// MaxTargetLangs caps how many translation targets a meeting may carry.
const MaxTargetLangs = 4

// Config holds the user-tunable settings.
type Config struct {
	// SocketPath overrides the daemon socket location.
	SocketPath string `yaml:"socket_path,omitempty"`

	// DBPath overrides the SQLite database location.
	DBPath string `yaml:"db_path,omitempty"`

	// SourceLang is the spoken language to transcribe.
	SourceLang string `yaml:"source_lang"`

	// TargetLangs are the translation targets, at most four.
	TargetLangs []string `yaml:"target_langs"`

	// Overlay configures the floating caption overlay.
	Overlay OverlayConfig `yaml:"overlay"`
}

// OverlayConfig controls the caption overlay.
type OverlayConfig struct {
	Enabled bool `yaml:"enabled"`

	// Window is how many recent finalized lines the overlay retains.
	Window int `yaml:"window"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		SourceLang:  "en",
		TargetLangs: []string{"vi"},
		Overlay:     OverlayConfig{Enabled: true, Window: 4},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parley", "config.yaml")
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config back to path, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.SourceLang == "" {
		return fmt.Errorf("source_lang cannot be empty")
	}
	if len(c.TargetLangs) == 0 {
		return fmt.Errorf("target_langs cannot be empty")
	}
	if len(c.TargetLangs) > MaxTargetLangs {
		return fmt.Errorf("at most %d target_langs allowed, got %d", MaxTargetLangs, len(c.TargetLangs))
	}
	seen := make(map[string]bool, len(c.TargetLangs))
	for _, lang := range c.TargetLangs {
		if lang == "" {
			return fmt.Errorf("target_langs cannot contain empty entries")
		}
		if seen[lang] {
			return fmt.Errorf("duplicate target language %q", lang)
		}
		seen[lang] = true
	}
	if c.Overlay.Window < 0 {
		return fmt.Errorf("overlay.window cannot be negative")
	}
	return nil
}
