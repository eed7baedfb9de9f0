package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/dugoutdata/dugout/internal/logger"
)

// Config represents the complete configuration for the dugout CLI
type Config struct {
	// Collection configuration
	Collection CollectionConfig `toml:"collection"`

	// Cleanup configuration
	Cleanup CleanupConfig `toml:"cleanup"`

	// Run log configuration
	RunLog RunLogConfig `toml:"run_log"`

	// Logger configuration
	Log logger.Config `toml:"log"`

	// Sentry configuration
	Sentry SentryConfig `toml:"sentry"`

	// Output configuration
	Output OutputConfig `toml:"output"`

	// Directory paths (computed, not stored in TOML)
	DataDir   string `toml:"-"`
	ConfigDir string `toml:"-"`
}

// CollectionConfig contains settings for collection runs
type CollectionConfig struct {
	// Named performance profile (stealth, conservative, balanced, aggressive)
	Profile string `toml:"profile"`

	// Worker count override (0 = use profile value)
	MaxWorkers int `toml:"max_workers"`

	// Delay applied after each completed unit, in milliseconds (0 = profile value)
	RequestDelayMS int `toml:"request_delay_ms"`

	// Maximum retry attempts for transient fetch failures
	MaxRetries int `toml:"max_retries"`

	// Base backoff delay in milliseconds, doubled per attempt
	BackoffBaseMS int `toml:"backoff_base_ms"`

	// Per-attempt fetch timeout in seconds
	TimeoutSeconds int `toml:"timeout_seconds"`

	// Season year used in artifact file names
	Season int `toml:"season"`
}

// CleanupConfig controls the purge subcommand defaults
type CleanupConfig struct {
	// Maximum sidecar age in hours before purge removes it
	MaxHashAgeHours int `toml:"max_hash_age_hours"`
}

// RunLogConfig contains run-history database settings
type RunLogConfig struct {
	// Path to the SQLite run log (empty = <data_dir>/runs.db)
	Path string `toml:"path"`

	// Number of most recent runs retained
	MaxEntries int `toml:"max_entries"`
}

// SentryConfig contains Sentry error monitoring settings
type SentryConfig struct {
	// Enable Sentry error monitoring
	Enabled bool `toml:"enabled"`

	// Sentry DSN for error reporting
	DSN string `toml:"dsn"`

	// Environment name (development, staging, production)
	Environment string `toml:"environment"`

	// Sample rate for error reporting (0.0 to 1.0)
	SampleRate float64 `toml:"sample_rate"`
}

// OutputConfig contains CLI output settings
type OutputConfig struct {
	// Enable colored output (only honored on terminals)
	Color bool `toml:"color"`

	// Show the live progress line during collection runs
	Progress bool `toml:"progress"`

	// Verbosity level (quiet, normal, verbose)
	Verbosity string `toml:"verbosity"`
}

// DefaultConfig returns a configuration populated with defaults
func DefaultConfig() *Config {
	dataDir, configDir := defaultDirs()

	return &Config{
		Collection: CollectionConfig{
			Profile:        "balanced",
			MaxRetries:     3,
			BackoffBaseMS:  1000,
			TimeoutSeconds: 30,
			Season:         2025,
		},
		Cleanup: CleanupConfig{
			MaxHashAgeHours: 720,
		},
		RunLog: RunLogConfig{
			MaxEntries: 100,
		},
		Log: *logger.DefaultConfig(),
		Sentry: SentryConfig{
			Enabled:     false,
			Environment: "production",
			SampleRate:  1.0,
		},
		Output: OutputConfig{
			Color:     true,
			Progress:  true,
			Verbosity: "normal",
		},
		DataDir:   dataDir,
		ConfigDir: configDir,
	}
}

// Load reads the configuration file at the given path, or the default
// location when path is empty. A missing file is not an error; defaults
// are returned so first runs work without any setup.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = filepath.Join(cfg.ConfigDir, "config.toml")
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// DUGOUT_DATA_DIR relocates all state for containers, CI, and tests
	if dataDir := os.Getenv("DUGOUT_DATA_DIR"); dataDir != "" {
		if !filepath.IsAbs(dataDir) {
			return nil, fmt.Errorf("DUGOUT_DATA_DIR must be an absolute path, got: %s", dataDir)
		}
		cfg.DataDir = filepath.Clean(dataDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Collection.MaxWorkers < 0 {
		return fmt.Errorf("collection.max_workers must not be negative, got %d", c.Collection.MaxWorkers)
	}
	if c.Collection.RequestDelayMS < 0 {
		return fmt.Errorf("collection.request_delay_ms must not be negative, got %d", c.Collection.RequestDelayMS)
	}
	if c.Collection.MaxRetries < 0 {
		return fmt.Errorf("collection.max_retries must not be negative, got %d", c.Collection.MaxRetries)
	}
	if c.Collection.TimeoutSeconds <= 0 {
		return fmt.Errorf("collection.timeout_seconds must be positive, got %d", c.Collection.TimeoutSeconds)
	}
	if c.Cleanup.MaxHashAgeHours <= 0 {
		return fmt.Errorf("cleanup.max_hash_age_hours must be positive, got %d", c.Cleanup.MaxHashAgeHours)
	}
	if c.RunLog.MaxEntries <= 0 {
		return fmt.Errorf("run_log.max_entries must be positive, got %d", c.RunLog.MaxEntries)
	}
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("sentry.sample_rate must be between 0.0 and 1.0, got %f", c.Sentry.SampleRate)
	}
	switch c.Output.Verbosity {
	case "quiet", "normal", "verbose":
	default:
		return fmt.Errorf("output.verbosity must be quiet, normal, or verbose, got %q", c.Output.Verbosity)
	}
	return nil
}

// HashDir returns the root directory for hash sidecar files
func (c *Config) HashDir() string {
	return filepath.Join(c.DataDir, "hash")
}

// ArtifactDir returns the root directory for persisted artifacts
func (c *Config) ArtifactDir() string {
	return filepath.Join(c.DataDir, "data")
}

// RunLogPath returns the run log database path
func (c *Config) RunLogPath() string {
	if c.RunLog.Path != "" {
		return c.RunLog.Path
	}
	return filepath.Join(c.DataDir, "runs.db")
}

// EnsureDirs creates the data directory tree if it does not exist
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.HashDir(), c.ArtifactDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Save writes the configuration to the given path in TOML format
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.ConfigDir, "config.toml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func defaultDirs() (dataDir, configDir string) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	configDir = filepath.Join(home, ".config", "dugout")
	dataDir = filepath.Join(home, ".local", "share", "dugout")

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "dugout")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dataDir = filepath.Join(xdg, "dugout")
	}

	return dataDir, configDir
}
