package config

import (
	"time"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Config represents the complete mpp configuration
type Config struct {
	BaseDir    string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Delimiters []string      `yaml:"delimiters"`
	Strict     bool          `yaml:"strict"`     // Missing variables and partials are errors
	Helpers    []string      `yaml:"helpers"`    // Optional helpers to register: markdown, date, number, currency
	Locale     string        `yaml:"locale"`     // Default locale for the formatting helpers
	Partials   string        `yaml:"partials"`   // Directory of partial templates
	Extensions []string      `yaml:"extensions"` // Template file extensions, without the dot
	Logging    LoggingConfig `yaml:"logging"`
	Watch      WatchConfig   `yaml:"watch"`
	Serve      ServeConfig   `yaml:"serve"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json, for request logs
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// WatchConfig holds file watching settings
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// ServeConfig holds preview server settings
type ServeConfig struct {
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	Root        string            `yaml:"root"`   // Directory of templates to serve
	Data        string            `yaml:"data"`   // View data file (YAML or JSON)
	Reload      bool              `yaml:"reload"` // Reload open pages when files change
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// Tags returns the configured delimiters.
func (c *Config) Tags() mustache.Tags {
	if len(c.Delimiters) != 2 {
		return mustache.DefaultTags
	}
	return mustache.Tags{c.Delimiters[0], c.Delimiters[1]}
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Delimiters: []string{"{{", "}}"},
		Extensions: []string{"mustache", "html", "tpl"},
		Locale:     "en-US",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Serve: ServeConfig{
			Host:   "localhost",
			Port:   8080,
			Root:   ".",
			Reload: true,
			Compression: CompressionConfig{
				Enabled: true,
				Level:   "default",
				MinSize: 1024,
			},
		},
	}
}
