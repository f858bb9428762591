package config

//go:generate go run ../tools/schema-generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StreamConfig defines defaults for reading provider streams.
type StreamConfig struct {
	// Provider selects the normalizer when the command line does not.
	// Empty (default): guess from the log file path.
	Provider string `yaml:"provider,omitempty"`

	// MaxLineBytes caps the size of a single stream line.
	// 0 (default): 1MB.
	MaxLineBytes int `yaml:"max_line_bytes,omitempty"`

	// SessionID stamps every emitted event. Empty generates one per run.
	SessionID string `yaml:"session_id,omitempty"`
}

// DisplayConfig defines settings for pretty output.
type DisplayConfig struct {
	// DetailLevel controls the verbosity of event output.
	// "summary" (default): Shows a one-line summary of tool calls.
	// "full": Shows full tool inputs and outputs.
	DetailLevel string `yaml:"detail_level,omitempty"`

	// MaxDiffLines controls how many lines of a diff to show before truncating.
	// 0 (default): Show all diff lines without truncation.
	// >0: Show at most this many lines, then summarize the rest.
	MaxDiffLines int `yaml:"max_diff_lines,omitempty"`

	// ShowThinking prints reasoning events.
	ShowThinking bool `yaml:"show_thinking,omitempty"`
}

// Config is the top-level configuration structure for agevents.
type Config struct {
	Stream  StreamConfig  `yaml:"stream,omitempty"`
	Display DisplayConfig `yaml:"display,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{DetailLevel: "summary"},
	}
}

// DefaultPath returns ~/.config/agentevents/config.yaml.
func DefaultPath() string {
	return expandPath("~/.config/agentevents/config.yaml")
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Display.DetailLevel {
	case "", "summary", "full":
	default:
		return fmt.Errorf("display.detail_level must be summary or full, got %q", c.Display.DetailLevel)
	}
	if c.Stream.MaxLineBytes < 0 {
		return fmt.Errorf("stream.max_line_bytes must not be negative")
	}
	if c.Display.MaxDiffLines < 0 {
		return fmt.Errorf("display.max_diff_lines must not be negative")
	}
	return nil
}

// expandPath expands home directory references.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
