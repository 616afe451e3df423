package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// When no config file is found the defaults are returned with an empty path.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		cfg.BaseDir, _ = os.Getwd()
		return cfg, "", nil
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, baseDir, getenv)
	if err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

// Parse decodes YAML configuration over the defaults, interpolating
// environment variables and resolving relative paths against baseDir.
func Parse(data []byte, baseDir string, getenv func(string) string) (*Config, error) {
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	cfg.Partials = resolvePath(baseDir, cfg.Partials)
	cfg.Serve.Root = resolvePath(baseDir, cfg.Serve.Root)
	cfg.Serve.Data = resolvePath(baseDir, cfg.Serve.Data)
	if cfg.Logging.Output != "stderr" && cfg.Logging.Output != "stdout" {
		cfg.Logging.Output = resolvePath(baseDir, cfg.Logging.Output)
	}

	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = strings.TrimPrefix(ext, ".")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > MUSTACHEPP_CONFIG env > ./mustachepp.yaml > ~/.config/mustachepp/mustachepp.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	// Try MUSTACHEPP_CONFIG environment variable
	if envPath := getenv("MUSTACHEPP_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("MUSTACHEPP_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	// Try ./mustachepp.yaml
	if _, err := os.Stat("mustachepp.yaml"); err == nil {
		return "mustachepp.yaml", nil
	}

	// Try ~/.config/mustachepp/mustachepp.yaml
	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "mustachepp", "mustachepp.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

var optionalHelpers = map[string]bool{"markdown": true, "date": true, "number": true, "currency": true}

// Validate checks the configuration and reports every problem found.
func Validate(cfg *Config) error {
	var errs []string

	if len(cfg.Delimiters) != 2 {
		errs = append(errs, fmt.Sprintf("delimiters: expected an opening and a closing delimiter, got %d", len(cfg.Delimiters)))
	} else if !cfg.Tags().Valid() {
		errs = append(errs, fmt.Sprintf("delimiters: %q and %q must be non-empty and contain no whitespace", cfg.Delimiters[0], cfg.Delimiters[1]))
	}

	if len(cfg.Extensions) == 0 {
		errs = append(errs, "extensions: at least one template extension is required")
	}

	for _, name := range cfg.Helpers {
		if !optionalHelpers[name] {
			errs = append(errs, fmt.Sprintf("helpers: unknown helper %q (must be markdown, date, number, or currency)", name))
		}
	}

	if _, err := language.Parse(cfg.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid locale: %s", cfg.Locale))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", cfg.Logging.Format))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("watch.debounce: must not be negative, got %s", cfg.Watch.Debounce))
	}

	if cfg.Serve.Port < 1 || cfg.Serve.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Serve.Port))
	}

	validCompression := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if !validCompression[cfg.Serve.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Serve.Compression.Level))
	}
	if cfg.Serve.Compression.MinSize < 0 {
		errs = append(errs, fmt.Sprintf("serve.compression.min_size: must not be negative, got %d", cfg.Serve.Compression.MinSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
