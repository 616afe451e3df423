package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Tags() != mustache.DefaultTags {
		t.Errorf("expected default tags, got %v", cfg.Tags())
	}
	if cfg.Serve.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Serve.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Watch.Debounce != 100*time.Millisecond {
		t.Errorf("expected default debounce 100ms, got %s", cfg.Watch.Debounce)
	}
	if !cfg.Serve.Compression.Enabled {
		t.Error("expected compression to be enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_HOST":
			return "example.com"
		case "TEST_PORT":
			return "9000"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "host: ${TEST_HOST}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env set)",
			input:    "host: ${TEST_HOST:-localhost}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env not set)",
			input:    "host: ${UNSET_VAR:-localhost}",
			expected: "host: localhost",
		},
		{
			name:     "multiple substitutions",
			input:    "addr: ${TEST_HOST}:${TEST_PORT}",
			expected: "addr: example.com:9000",
		},
		{
			name:     "unset without default",
			input:    "data: ${UNSET_VAR}",
			expected: "data: ",
		},
		{
			name:     "no substitution",
			input:    "strict: true",
			expected: "strict: true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mustachepp.yaml")

	configContent := `
delimiters: ["<%", "%>"]
strict: true
helpers: [markdown, date]
locale: fr-FR
partials: ./partials
extensions: [".mustache", "txt"]

logging:
  level: debug
  output: stdout

watch:
  debounce: 250ms

serve:
  port: 9090
  root: ./site
  data: data.yaml
  compression:
    level: best
    min_size: 512
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, path, err := LoadWithPath(configPath, os.Getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if path != configPath {
		t.Errorf("expected path %q, got %q", configPath, path)
	}
	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if cfg.Tags() != (mustache.Tags{"<%", "%>"}) {
		t.Errorf("expected <%% %%> tags, got %v", cfg.Tags())
	}
	if !cfg.Strict {
		t.Error("expected strict to be set")
	}
	if strings.Join(cfg.Helpers, ",") != "markdown,date" || cfg.Locale != "fr-FR" {
		t.Errorf("unexpected helpers %v or locale %q", cfg.Helpers, cfg.Locale)
	}
	if cfg.Partials != filepath.Join(dir, "partials") {
		t.Errorf("expected partials resolved against config dir, got %q", cfg.Partials)
	}
	if strings.Join(cfg.Extensions, ",") != "mustache,txt" {
		t.Errorf("expected extensions without dots, got %v", cfg.Extensions)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected stdout output to stay as is, got %q", cfg.Logging.Output)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("expected debounce 250ms, got %s", cfg.Watch.Debounce)
	}
	if cfg.Serve.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Serve.Port)
	}
	if cfg.Serve.Root != filepath.Join(dir, "site") {
		t.Errorf("expected root resolved against config dir, got %q", cfg.Serve.Root)
	}
	if cfg.Serve.Data != filepath.Join(dir, "data.yaml") {
		t.Errorf("expected data resolved against config dir, got %q", cfg.Serve.Data)
	}
	if !cfg.Serve.Compression.Enabled {
		t.Error("expected compression default to survive a partial override")
	}
	if cfg.Serve.Compression.Level != "best" || cfg.Serve.Compression.MinSize != 512 {
		t.Errorf("unexpected compression config: %+v", cfg.Serve.Compression)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mustachepp.yaml")

	configContent := `
serve:
  port: ${MPP_PORT:-8000}
  data: ${MPP_DATA}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	getenv := func(key string) string {
		if key == "MPP_DATA" {
			return "/srv/data.json"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Serve.Port != 8000 {
		t.Errorf("expected port 8000 from default, got %d", cfg.Serve.Port)
	}
	if cfg.Serve.Data != "/srv/data.json" {
		t.Errorf("expected data from env, got %q", cfg.Serve.Data)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte("strict: true\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	getenv := func(key string) string {
		if key == "MUSTACHEPP_CONFIG" {
			return configPath
		}
		return ""
	}

	cfg, err := Load("", getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Strict {
		t.Error("expected strict from MUSTACHEPP_CONFIG file")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), os.Getenv)
		if err == nil || !strings.Contains(err.Error(), "config file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("env path", func(t *testing.T) {
		getenv := func(string) string { return "/does/not/exist.yaml" }
		_, err := Load("", getenv)
		if err == nil || !strings.Contains(err.Error(), "MUSTACHEPP_CONFIG") {
			t.Errorf("expected MUSTACHEPP_CONFIG error, got %v", err)
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		expectErr bool
		errSubstr string
	}{
		{
			name:      "valid minimal config",
			config:    "strict: false\n",
			expectErr: false,
		},
		{
			name:      "single delimiter",
			config:    "delimiters: [\"{{\"]\n",
			expectErr: true,
			errSubstr: "expected an opening and a closing delimiter",
		},
		{
			name:      "delimiter with whitespace",
			config:    "delimiters: [\"{ {\", \"}}\"]\n",
			expectErr: true,
			errSubstr: "must be non-empty and contain no whitespace",
		},
		{
			name:      "no extensions",
			config:    "extensions: []\n",
			expectErr: true,
			errSubstr: "at least one template extension",
		},
		{
			name:      "unknown helper",
			config:    "helpers: [markdown, emoji]\n",
			expectErr: true,
			errSubstr: "unknown helper \"emoji\"",
		},
		{
			name:      "invalid locale",
			config:    "locale: \"not a locale!\"\n",
			expectErr: true,
			errSubstr: "invalid locale",
		},
		{
			name:      "invalid log level",
			config:    "logging:\n  level: verbose\n",
			expectErr: true,
			errSubstr: "invalid log level",
		},
		{
			name:      "invalid log format",
			config:    "logging:\n  format: xml\n",
			expectErr: true,
			errSubstr: "invalid log format",
		},
		{
			name:      "invalid port",
			config:    "serve:\n  port: 99999\n",
			expectErr: true,
			errSubstr: "invalid port",
		},
		{
			name:      "invalid compression level",
			config:    "serve:\n  compression:\n    level: turbo\n",
			expectErr: true,
			errSubstr: "invalid compression level",
		},
		{
			name:      "negative debounce",
			config:    "watch:\n  debounce: -1s\n",
			expectErr: true,
			errSubstr: "watch.debounce",
		},
		{
			name:      "bad yaml",
			config:    "strict: [\n",
			expectErr: true,
			errSubstr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.config), t.TempDir(), os.Getenv)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errSubstr, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "loud"
	cfg.Serve.Port = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "configuration errors:\n  - invalid log level: loud (must be debug, info, warn, or error)\n  - invalid port: 0 (must be 1-65535)"
	if err.Error() != want {
		t.Errorf("unexpected error message:\n%s", err.Error())
	}
}
