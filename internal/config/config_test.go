package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"database_url": "/tmp/theater.db",
		"registry_path": "venues.json5",
		"min_delay": "500ms",
		"cache_ttl": 3600,
		"concurrency": 2,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/tmp/theater.db", cfg.DatabaseURL)
	assert.Equal(t, "venues.json5", cfg.RegistryPath)
	assert.Equal(t, 500*time.Millisecond, cfg.MinDelay.Std())
	assert.Equal(t, time.Hour, cfg.CacheTTL.Std())
	assert.Equal(t, 2, cfg.Concurrency)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"min_delay": "soon"}`), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{name: "defaults are valid", cfg: Default()},
		{name: "negative concurrency", cfg: Config{Concurrency: -1}, errMsg: "concurrency"},
		{name: "too much concurrency", cfg: Config{Concurrency: 64}, errMsg: "at most 16"},
		{name: "negative attempts", cfg: Config{MaxAttempts: -2}, errMsg: "max_attempts"},
		{name: "negative delay", cfg: Config{MinDelay: Duration(-time.Second)}, errMsg: "non-negative"},
		{name: "bucket and dir", cfg: Config{PublishBucket: "b", PublishDir: "d"}, errMsg: "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "custom.db",
		Concurrency: 4,
		Verbose:     true,
	}

	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, "custom.db", merged.DatabaseURL)
	assert.Equal(t, 4, merged.Concurrency)
	assert.Equal(t, "config/venues.json5", merged.RegistryPath)
	assert.Equal(t, time.Second, merged.MinDelay.Std())
	assert.Equal(t, 3, merged.MaxAttempts)
	assert.True(t, merged.Verbose)
	assert.False(t, merged.SkipCache)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDatabaseURL: "postgres://localhost/theater",
		EnvConcurrency: "3",
		EnvAPIKey:      "  key  ",
		EnvGenreModel:  "gemini-2.5-pro",
		EnvBucket:      "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "postgres://localhost/theater", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.GenreModel)
	assert.Empty(t, cfg.PublishBucket)

	env[EnvConcurrency] = "many"
	assert.Error(t, cfg.ApplyEnv(lookup))
}
