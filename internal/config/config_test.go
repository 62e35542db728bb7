package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "./static", cfg.StaticDir)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, int64(4), cfg.MaxConcurrent)
	assert.Equal(t, int64(89478485), cfg.MaxPixels)
	assert.Equal(t, 90, cfg.JPEGQuality)
	assert.Equal(t, time.Hour, cfg.ArtifactTTL)
	assert.Equal(t, "@every 10m", cfg.JanitorSchedule)
	assert.True(t, cfg.Metrics)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.DebugLogging())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{
		"PERIODIC_HTTP_ADDR":    "127.0.0.1:9000",
		"PERIODIC_STATIC_DIR":   "/srv/static",
		"PERIODIC_ARTIFACT_TTL": "15m",
		"PERIODIC_METRICS":      "false",
		"PERIODIC_LOG_LEVEL":    "DEBUG",
		"PERIODIC_MAX_PIXELS":   "1000000",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "/srv/static", cfg.StaticDir)
	assert.Equal(t, 15*time.Minute, cfg.ArtifactTTL)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, int64(1_000_000), cfg.MaxPixels)
	assert.True(t, cfg.DebugLogging())
}

func TestLoadFromInvalidEnvironment(t *testing.T) {
	t.Parallel()

	_, err := LoadFrom(map[string]string{"PERIODIC_MAX_CONCURRENT": "many"})
	assert.Error(t, err)
}

func TestBindFlagsOverride(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{"PERIODIC_HTTP_ADDR": ":7000"})
	require.NoError(t, err)

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--static-dir", "/tmp/out", "--debug", "--jpeg-quality", "75", "--max-pixels", "4096"}))

	assert.Equal(t, ":7000", cfg.HTTPAddr, "env value kept when flag is absent")
	assert.Equal(t, "/tmp/out", cfg.StaticDir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 75, cfg.JPEGQuality)
	assert.Equal(t, int64(4096), cfg.MaxPixels)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.HTTPAddr = " " }},
		{"empty static dir", func(c *Config) { c.StaticDir = "" }},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"zero pixel limit", func(c *Config) { c.MaxPixels = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"quality too high", func(c *Config) { c.JPEGQuality = 101 }},
		{"quality too low", func(c *Config) { c.JPEGQuality = 0 }},
		{"negative ttl", func(c *Config) { c.ArtifactTTL = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
