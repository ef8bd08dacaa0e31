// Package config loads sitecheck runtime configuration from YAML and merges
// CLI flag overrides on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// HistoryConfig controls the session-history store.
type HistoryConfig struct {
	// Enabled turns session recording on
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database location
	DBPath string `yaml:"db_path"`
}

// Config represents sitecheck configuration options.
type Config struct {
	// MaxPages caps URL discovery
	MaxPages int `yaml:"max_pages"`

	// BaseConcurrency is the per-phase worker budget before penalties
	BaseConcurrency int `yaml:"base_concurrency"`

	// NavTimeout bounds a single page load
	NavTimeout time.Duration `yaml:"nav_timeout"`

	// ExtractTimeout bounds a single extraction action on a loaded page
	ExtractTimeout time.Duration `yaml:"extract_timeout"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// OutputDir is where session artifacts are written
	OutputDir string `yaml:"output_dir"`

	// CatalogPath points at a YAML catalog replacing the built-in tests
	CatalogPath string `yaml:"catalog_path"`

	// Headless controls whether the browser runs without a window
	Headless bool `yaml:"headless"`

	// History contains session-history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MaxPages:        25,
		BaseConcurrency: 4,
		NavTimeout:      30 * time.Second,
		ExtractTimeout:  30 * time.Second,
		LogLevel:        "info",
		OutputDir:       ".sitecheck/sessions",
		Headless:        true,
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".sitecheck/history.db",
		},
	}
}

// LoadConfig loads configuration from path. A missing file returns defaults
// without error; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations arrive as strings in YAML, so decode through an
	// intermediate struct.
	type yamlConfig struct {
		MaxPages        int           `yaml:"max_pages"`
		BaseConcurrency int           `yaml:"base_concurrency"`
		NavTimeout      string        `yaml:"nav_timeout"`
		ExtractTimeout  string        `yaml:"extract_timeout"`
		LogLevel        string        `yaml:"log_level"`
		OutputDir       string        `yaml:"output_dir"`
		CatalogPath     string        `yaml:"catalog_path"`
		Headless        *bool         `yaml:"headless"`
		History         HistoryConfig `yaml:"history"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.MaxPages != 0 {
		cfg.MaxPages = yc.MaxPages
	}
	if yc.BaseConcurrency != 0 {
		cfg.BaseConcurrency = yc.BaseConcurrency
	}
	if yc.NavTimeout != "" {
		timeout, err := time.ParseDuration(yc.NavTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid nav_timeout %q: %w", yc.NavTimeout, err)
		}
		cfg.NavTimeout = timeout
	}
	if yc.ExtractTimeout != "" {
		timeout, err := time.ParseDuration(yc.ExtractTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid extract_timeout %q: %w", yc.ExtractTimeout, err)
		}
		cfg.ExtractTimeout = timeout
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.OutputDir != "" {
		cfg.OutputDir = yc.OutputDir
	}
	if yc.CatalogPath != "" {
		cfg.CatalogPath = yc.CatalogPath
	}
	if yc.Headless != nil {
		cfg.Headless = *yc.Headless
	}

	// Merge the history section only if it was present at all.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err == nil {
		if section, exists := raw["history"]; exists && section != nil {
			historyMap, _ := section.(map[string]any)
			if _, ok := historyMap["enabled"]; ok {
				cfg.History.Enabled = yc.History.Enabled
			}
			if _, ok := historyMap["db_path"]; ok {
				cfg.History.DBPath = yc.History.DBPath
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads .sitecheck/config.yaml from dir, falling back to
// defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".sitecheck", "config.yaml"))
}

// MergeWithFlags applies non-nil CLI flag values over the configuration.
func (c *Config) MergeWithFlags(maxPages *int, baseConcurrency *int, navTimeout, extractTimeout *time.Duration, outputDir *string, catalogPath *string, headless *bool) {
	if maxPages != nil {
		c.MaxPages = *maxPages
	}
	if baseConcurrency != nil {
		c.BaseConcurrency = *baseConcurrency
	}
	if navTimeout != nil {
		c.NavTimeout = *navTimeout
	}
	if extractTimeout != nil {
		c.ExtractTimeout = *extractTimeout
	}
	if outputDir != nil {
		c.OutputDir = *outputDir
	}
	if catalogPath != nil {
		c.CatalogPath = *catalogPath
	}
	if headless != nil {
		c.Headless = *headless
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if c.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be > 0, got %d", c.MaxPages)
	}
	if c.BaseConcurrency <= 0 {
		return fmt.Errorf("base_concurrency must be > 0, got %d", c.BaseConcurrency)
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("nav_timeout must be > 0, got %v", c.NavTimeout)
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract_timeout must be > 0, got %v", c.ExtractTimeout)
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	return nil
}
