// Package config loads and validates engine configuration.
//
// Precedence, lowest to highest:
//  1. built-in defaults
//  2. config file (~/.lumen/config.yaml or explicit path)
//  3. environment variables (LUMEN_*)
//
// Validation happens once at load time; invalid values never reach the
// per-keystroke hot path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lumenlauncher/lumen/internal/errors"
	"github.com/lumenlauncher/lumen/internal/match"
)

// Config is the complete Lumen configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Provider ProviderConfig `yaml:"provider"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EngineConfig configures matching and ranking.
type EngineConfig struct {
	// ResultCap bounds the ranked list length. Must be positive.
	ResultCap int `yaml:"result_cap"`

	// MinScore filters degenerate matches. Applied to non-empty
	// queries only; an empty query always returns the full catalog at
	// the floor score.
	MinScore int `yaml:"min_score"`

	// CaseSensitive disables Unicode case folding during
	// normalization.
	CaseSensitive bool `yaml:"case_sensitive"`

	// QueryTimeout aborts a session whose catalog is unexpectedly
	// large. Zero disables the timeout.
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// Workers is the number of parallel matching shards per session.
	Workers int `yaml:"workers"`

	// Matcher is the default matcher name for items registered without
	// one. Resolved against the matcher registry at engine assembly, so
	// collaborator-registered matchers are valid values.
	Matcher string `yaml:"matcher"`
}

// ProviderConfig configures the application catalog provider.
type ProviderConfig struct {
	// Paths are the directories scanned for launchable entries.
	Paths []string `yaml:"paths"`

	// WatchDebounce coalesces bursts of file events before the catalog
	// is updated.
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// IncludeHidden scans dotfiles as well.
	IncludeHidden bool `yaml:"include_hidden"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	FilePath  string `yaml:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			ResultCap:    25,
			MinScore:     0,
			QueryTimeout: 2 * time.Second,
			Workers:      runtime.NumCPU(),
			Matcher:      match.DefaultName,
		},
		Provider: ProviderConfig{
			WatchDebounce: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultPath returns the default config file location
// (~/.lumen/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".lumen", "config.yaml")
	}
	return filepath.Join(home, ".lumen", "config.yaml")
}

// Load reads configuration from path (or the default location when
// path is empty), applies env overrides, and validates. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults only.
	default:
		return Config{}, errors.New(errors.ErrCodeConfigNotFound, fmt.Sprintf("read %s", path), err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would misbehave on the hot path.
func (c Config) Validate() error {
	if c.Engine.ResultCap <= 0 {
		return errors.ConfigError(fmt.Sprintf("result_cap must be positive, got %d", c.Engine.ResultCap), nil)
	}
	if c.Engine.MinScore < 0 {
		return errors.ConfigError(fmt.Sprintf("min_score must not be negative, got %d", c.Engine.MinScore), nil)
	}
	if c.Engine.QueryTimeout < 0 {
		return errors.ConfigError(fmt.Sprintf("query_timeout must not be negative, got %s", c.Engine.QueryTimeout), nil)
	}
	if c.Engine.Workers <= 0 {
		return errors.ConfigError(fmt.Sprintf("workers must be positive, got %d", c.Engine.Workers), nil)
	}
	if c.Provider.WatchDebounce < 0 {
		return errors.ConfigError(fmt.Sprintf("watch_debounce must not be negative, got %s", c.Provider.WatchDebounce), nil)
	}
	return nil
}

// applyEnv overlays LUMEN_* environment variables.
func applyEnv(cfg *Config) {
	if v, ok := envInt("LUMEN_RESULT_CAP"); ok {
		cfg.Engine.ResultCap = v
	}
	if v, ok := envInt("LUMEN_MIN_SCORE"); ok {
		cfg.Engine.MinScore = v
	}
	if v, ok := envBool("LUMEN_CASE_SENSITIVE"); ok {
		cfg.Engine.CaseSensitive = v
	}
	if v, ok := envDuration("LUMEN_QUERY_TIMEOUT"); ok {
		cfg.Engine.QueryTimeout = v
	}
	if v, ok := envInt("LUMEN_WORKERS"); ok {
		cfg.Engine.Workers = v
	}
	if v := os.Getenv("LUMEN_MATCHER"); v != "" {
		cfg.Engine.Matcher = v
	}
	if v := os.Getenv("LUMEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
