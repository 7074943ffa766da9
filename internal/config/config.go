package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cyp0633/librrule/recurrence"
	"github.com/cyp0633/librrule/rrule"
)

// Config represents the CLI configuration
type Config struct {
	Expansion ExpansionConfig `toml:"expansion"`
	Output    OutputConfig    `toml:"output"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ExpansionConfig holds defaults for rule expansion
type ExpansionConfig struct {
	TZID    string `toml:"tzid"`
	MaxYear int    `toml:"max_year"`
	Limit   int    `toml:"limit"`
	// Preset picks the recurrence engine configuration used by the ics
	// command: default, high_performance, low_memory or no_cache.
	Preset string `toml:"preset"`
}

// OutputConfig holds result rendering settings
type OutputConfig struct {
	Format string `toml:"format"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

var presets = map[string]recurrence.EngineConfig{
	"default":          recurrence.DefaultEngineConfig,
	"high_performance": recurrence.HighPerformanceConfig,
	"low_memory":       recurrence.LowMemoryConfig,
	"no_cache":         recurrence.DisabledCacheConfig,
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Expansion: ExpansionConfig{
			TZID:    "UTC",
			MaxYear: rrule.DefaultMaxYear,
			Limit:   100,
			Preset:  "default",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig returns the defaults, or the file at configPath when one is
// given. Command-line flags are applied by the caller.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(configPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := rrule.LoadZone(c.Expansion.TZID); err != nil {
		return fmt.Errorf("invalid expansion tzid: %w", err)
	}
	if c.Expansion.MaxYear <= 0 {
		return fmt.Errorf("expansion max_year must be positive")
	}
	if c.Expansion.Limit < 0 {
		return fmt.Errorf("expansion limit must not be negative")
	}
	if _, ok := presets[c.Expansion.Preset]; !ok {
		return fmt.Errorf("unknown engine preset: %s (must be default, high_performance, low_memory, or no_cache)", c.Expansion.Preset)
	}

	switch c.Output.Format {
	case "text", "json", "xml", "ics":
	default:
		return fmt.Errorf("invalid output format: %s (must be text, json, xml, or ics)", c.Output.Format)
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// EngineConfig returns the selected engine preset with the configured
// iteration ceiling.
func (c *Config) EngineConfig() recurrence.EngineConfig {
	engine, ok := presets[c.Expansion.Preset]
	if !ok {
		engine = recurrence.DefaultEngineConfig
	}
	engine.MaxYear = c.Expansion.MaxYear
	return engine
}

// NewLogger builds a slog logger writing to w. verbose forces debug level.
func (c LoggingConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := parseLevel(c.Level)
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
}
