// Package config provides configuration loading and validation for the CLI
// and the venue registry consumed by the scrapers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
)

// Duration is a time.Duration that unmarshals from "30s"-style strings or
// from a number of seconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	DatabaseURL  string `json:"database_url,omitempty"`  // SQLite file path or postgres:// URL
	RegistryPath string `json:"registry_path,omitempty"` // Venue registry (JSON5)

	// Fetching
	CacheDir       string   `json:"cache_dir,omitempty"`
	CacheTTL       Duration `json:"cache_ttl,omitempty"`
	SkipCache      bool     `json:"skip_cache,omitempty"`
	MinDelay       Duration `json:"min_delay,omitempty"`  // Minimum spacing between requests
	MaxAttempts    int      `json:"max_attempts,omitempty"`
	BaseDelay      Duration `json:"base_delay,omitempty"` // Backoff base
	RequestTimeout Duration `json:"request_timeout,omitempty"`
	BrowserTimeout Duration `json:"browser_timeout,omitempty"`
	Concurrency    int      `json:"concurrency,omitempty"` // Venues scraped in parallel

	// Export
	ExportPath    string `json:"export_path,omitempty"`
	PublishBucket string `json:"publish_bucket,omitempty"` // GCS bucket
	PublishDir    string `json:"publish_dir,omitempty"`    // Local publish directory
	PublishPrefix string `json:"publish_prefix,omitempty"` // Object name prefix within the bucket

	// Behavior
	APIKey     string `json:"api_key,omitempty"`     // Gemini API key for genre classification
	GenreModel string `json:"genre_model,omitempty"` // Overrides the classifier's model for every tier
	Verbose    bool   `json:"verbose,omitempty"`     // Print detailed debug information
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabaseURL:    "data/theater.db",
		RegistryPath:   "config/venues.json5",
		CacheDir:       filepath.Join(".cache", "pages"),
		CacheTTL:       Duration(24 * time.Hour),
		MinDelay:       Duration(time.Second),
		MaxAttempts:    3,
		BaseDelay:      Duration(2 * time.Second),
		RequestTimeout: Duration(30 * time.Second),
		BrowserTimeout: Duration(60 * time.Second),
		Concurrency:    1,
		ExportPath:     "public/theater-data.json",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	path, err := absPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return filepath.Join(cwd, path), nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.Concurrency > 16 {
		return fmt.Errorf("config error: 'concurrency' must be at most 16")
	}
	if c.MinDelay < 0 || c.BaseDelay < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("config error: durations must be non-negative")
	}
	if c.PublishBucket != "" && c.PublishDir != "" {
		return fmt.Errorf("config error: 'publish_bucket' and 'publish_dir' are mutually exclusive")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// Bool fields cannot distinguish unset from false, so they are never merged.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c
	defaults.SkipCache = result.SkipCache
	defaults.Verbose = result.Verbose
	if err := mergo.Merge(&result, defaults); err != nil {
		// Merge only fails for mismatched types, which cannot happen here.
		return *c
	}
	return result
}

// Environment variables read by ApplyEnv.
const (
	EnvDatabaseURL = "THEATER_DB"
	EnvRegistry    = "THEATER_REGISTRY"
	EnvCacheDir    = "THEATER_CACHE_DIR"
	EnvExportPath  = "THEATER_EXPORT_PATH"
	EnvBucket      = "THEATER_BUCKET"
	EnvPublishDir  = "THEATER_PUBLISH_DIR"
	EnvConcurrency = "THEATER_CONCURRENCY"
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvGenreModel  = "THEATER_GENRE_MODEL"
)

// ApplyEnv overrides fields from environment variables. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(EnvDatabaseURL, &c.DatabaseURL)
	setString(EnvRegistry, &c.RegistryPath)
	setString(EnvCacheDir, &c.CacheDir)
	setString(EnvExportPath, &c.ExportPath)
	setString(EnvBucket, &c.PublishBucket)
	setString(EnvPublishDir, &c.PublishDir)
	setString(EnvAPIKey, &c.APIKey)
	setString(EnvGenreModel, &c.GenreModel)

	if v, ok := lookup(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", EnvConcurrency, err)
		}
		c.Concurrency = n
	}
	return nil
}
