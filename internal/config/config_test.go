package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from the caller's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATABASE_URL", "REDIS_URL", "NATS_URL",
		"JOBINTEL_ALERT_SUBJECT", "JOBINTEL_USER_AGENT", "JOBINTEL_METRICS_ADDR",
		"JOBINTEL_HTTP_TIMEOUT_SECONDS", "JOBINTEL_COMPANY_TIMEOUT_SECONDS",
		"JOBINTEL_CONCURRENCY", "JOBINTEL_LOCK_TTL_SECONDS",
		"JOBINTEL_USE_BROWSER", "JOBINTEL_VERBOSE",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"database_url": "postgres://localhost:5432/jobintel",
		"redis_url": "redis://localhost:6379/0",
		"concurrency": 4,
		"use_browser": true,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost:5432/jobintel", cfg.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.UseBrowser)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
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
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{DatabaseURL: "postgres://localhost/jobintel", NATSURL: "nats://localhost:4222", Concurrency: 8},
		},
		{
			name:    "missing database url",
			cfg:     Config{},
			wantErr: "'DatabaseURL' failed 'required'",
		},
		{
			name:    "wrong database scheme",
			cfg:     Config{DatabaseURL: "mysql://localhost/jobintel"},
			wantErr: "'DatabaseURL' failed 'startswith'",
		},
		{
			name:    "wrong redis scheme",
			cfg:     Config{DatabaseURL: "postgres://localhost/jobintel", RedisURL: "http://localhost"},
			wantErr: "'RedisURL'",
		},
		{
			name:    "negative concurrency",
			cfg:     Config{DatabaseURL: "postgres://localhost/jobintel", Concurrency: -1},
			wantErr: "'Concurrency' failed 'gte'",
		},
		{
			name:    "excessive concurrency",
			cfg:     Config{DatabaseURL: "postgres://localhost/jobintel", Concurrency: 500},
			wantErr: "'Concurrency' failed 'lte'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		DatabaseURL:    "postgres://default/jobintel",
		RedisURL:       "redis://default:6379",
		Concurrency:    4,
		LockTTLSeconds: 120,
		Verbose:        true,
	}

	partial := Config{
		DatabaseURL: "postgres://custom/jobintel",
		Concurrency: 2,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "postgres://custom/jobintel", merged.DatabaseURL)
	assert.Equal(t, 2, merged.Concurrency)

	// Default values should fill in empty fields
	assert.Equal(t, "redis://default:6379", merged.RedisURL)
	assert.Equal(t, 120, merged.LockTTLSeconds)
	assert.True(t, merged.Verbose)

	// Package defaults fill the rest
	assert.Equal(t, DefaultHTTPTimeoutSeconds, merged.HTTPTimeoutSeconds)
	assert.Equal(t, DefaultCompanyTimeoutSeconds, merged.CompanyTimeoutSeconds)
	assert.Equal(t, DefaultAlertSubject, merged.AlertSubject)
	assert.Equal(t, DefaultUserAgent, merged.UserAgent)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://localhost/jobintel"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "postgres://localhost/jobintel", merged.DatabaseURL)
	assert.Equal(t, DefaultConcurrency, merged.Concurrency)
	assert.Equal(t, 30*time.Second, merged.HTTPTimeout())
	assert.Equal(t, 5*time.Minute, merged.CompanyTimeout())
	assert.Equal(t, 10*time.Minute, merged.LockTTL())
	assert.False(t, merged.UseBrowser)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/jobintel")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("JOBINTEL_CONCURRENCY", "6")
	t.Setenv("JOBINTEL_USE_BROWSER", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/jobintel", cfg.DatabaseURL)
	assert.Equal(t, "nats://env:4222", cfg.NATSURL)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.True(t, cfg.UseBrowser)
	assert.Empty(t, cfg.RedisURL)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBINTEL_CONCURRENCY", "lots")
	t.Setenv("JOBINTEL_VERBOSE", "maybe")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOBINTEL_CONCURRENCY")
	assert.Contains(t, err.Error(), "JOBINTEL_VERBOSE")
}

func TestLoad_FileOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/jobintel")
	t.Setenv("REDIS_URL", "redis://env:6379")
	t.Setenv("JOBINTEL_CONCURRENCY", "3")

	path := writeConfig(t, `{"database_url": "postgres://file/jobintel", "lock_ttl_seconds": 60}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/jobintel", cfg.DatabaseURL)
	assert.Equal(t, "redis://env:6379", cfg.RedisURL)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 60, cfg.LockTTLSeconds)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
}
