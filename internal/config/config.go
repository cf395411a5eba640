// Package config holds the search configuration shared by the command layer
// and the match engine, plus loading of optional on-disk defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ColorMode controls when match highlighting is emitted.
type ColorMode string

const (
	// ColorAuto highlights only when stdout is a terminal
	ColorAuto ColorMode = "auto"
	// ColorAlways highlights unconditionally
	ColorAlways ColorMode = "always"
	// ColorNever disables highlighting
	ColorNever ColorMode = "never"
)

// Valid reports whether m is one of the recognized color modes.
func (m ColorMode) Valid() bool {
	switch m {
	case ColorAuto, ColorAlways, ColorNever:
		return true
	}
	return false
}

// ContextSpec describes the requested leading/trailing context counts.
// Around, when positive, overrides both Before and After.
type ContextSpec struct {
	Before int
	After  int
	Around int
}

// Resolve returns the effective (before, after) pair after applying the
// symmetric override.
func (cs ContextSpec) Resolve() (before, after int) {
	if cs.Around > 0 {
		return cs.Around, cs.Around
	}
	return cs.Before, cs.After
}

// Validate rejects negative context counts.
func (cs ContextSpec) Validate() error {
	if cs.Before < 0 || cs.After < 0 || cs.Around < 0 {
		return fmt.Errorf("context counts must be non-negative")
	}
	return nil
}

// Config represents one search invocation.
type Config struct {
	// Patterns are the raw -e pattern strings; multiple patterns combine
	// as alternation.
	Patterns []string

	// Invert selects non-matching lines (-v)
	Invert bool

	// Count suppresses line output and prints per-source match counts (-c)
	Count bool

	// Quiet suppresses all normal output; only exit status is used (-q)
	Quiet bool

	// Word restricts matches to whole words (-w)
	Word bool

	// Line restricts matches to whole lines (-x)
	Line bool

	// IgnoreCase enables case-insensitive matching (-i)
	IgnoreCase bool

	// DotAll makes '.' match newlines (--dotall)
	DotAll bool

	// Recursive expands directories among the inputs (-r)
	Recursive bool

	// Follow tails a single growing file for new lines (-f)
	Follow bool

	// Color controls match highlighting
	Color ColorMode

	// LogLevel sets diagnostic verbosity (trace, debug, info, warn, error)
	LogLevel string

	// PollInterval is the follow-mode poll period
	PollInterval time.Duration

	Context ContextSpec
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Color:        ColorAuto,
		LogLevel:     "warn",
		PollInterval: 100 * time.Millisecond,
	}
}

// Validate checks cross-field consistency before a run starts.
func (c *Config) Validate() error {
	if len(c.Patterns) == 0 {
		return fmt.Errorf("no pattern provided; use -e PATTERN")
	}
	if !c.Color.Valid() {
		return fmt.Errorf("invalid color mode %q: must be auto, always, or never", c.Color)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return c.Context.Validate()
}

// fileDefaults is the subset of settings that may come from the defaults
// file. Flags always win over file values.
type fileDefaults struct {
	Color        string `yaml:"color"`
	LogLevel     string `yaml:"log_level"`
	PollInterval string `yaml:"poll_interval"`
}

// DefaultsPath returns the conventional location of the defaults file,
// or "" when the home directory cannot be determined.
func DefaultsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".greptail.yaml")
}

// LoadDefaults applies settings from the YAML file at path onto cfg.
// A missing file is not an error; a malformed one is.
func LoadDefaults(fs afero.Fs, cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read defaults file: %w", err)
	}

	var fd fileDefaults
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return fmt.Errorf("failed to parse defaults file: %w", err)
	}

	if fd.Color != "" {
		cfg.Color = ColorMode(fd.Color)
	}
	if fd.LogLevel != "" {
		cfg.LogLevel = fd.LogLevel
	}
	if fd.PollInterval != "" {
		d, err := time.ParseDuration(fd.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval in defaults file: %w", err)
		}
		cfg.PollInterval = d
	}

	return nil
}
