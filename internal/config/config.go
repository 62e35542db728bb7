// Package config loads the service configuration from the environment and
// command-line flags. Flags override environment values, which override the
// defaults in the struct tags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// Config holds the web service configuration.
type Config struct {
	HTTPAddr        string        `env:"PERIODIC_HTTP_ADDR" envDefault:":8000"`
	StaticDir       string        `env:"PERIODIC_STATIC_DIR" envDefault:"./static"`
	MaxUploadBytes  int64         `env:"PERIODIC_MAX_UPLOAD_BYTES" envDefault:"33554432"`
	MaxPixels       int64         `env:"PERIODIC_MAX_PIXELS" envDefault:"89478485"`
	MaxConcurrent   int64         `env:"PERIODIC_MAX_CONCURRENT" envDefault:"4"`
	JPEGQuality     int           `env:"PERIODIC_JPEG_QUALITY" envDefault:"90"`
	ArtifactTTL     time.Duration `env:"PERIODIC_ARTIFACT_TTL" envDefault:"1h"`
	JanitorSchedule string        `env:"PERIODIC_JANITOR_SCHEDULE" envDefault:"@every 10m"`
	Metrics         bool          `env:"PERIODIC_METRICS" envDefault:"true"`
	Debug           bool          `env:"PERIODIC_DEBUG" envDefault:"false"`
	LogLevel        string        `env:"PERIODIC_LOG_LEVEL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom reads Config from the given variables instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// BindFlags registers flags that override the loaded values.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.StaticDir, "static-dir", c.StaticDir, "Directory for output artifacts and decorations")
	fs.Int64Var(&c.MaxUploadBytes, "max-upload-bytes", c.MaxUploadBytes, "Maximum accepted upload size in bytes")
	fs.Int64Var(&c.MaxPixels, "max-pixels", c.MaxPixels, "Maximum decoded image size in pixels")
	fs.Int64Var(&c.MaxConcurrent, "max-concurrent", c.MaxConcurrent, "Maximum number of images processed at once")
	fs.IntVar(&c.JPEGQuality, "jpeg-quality", c.JPEGQuality, "JPEG quality of stored images (1-100)")
	fs.DurationVar(&c.ArtifactTTL, "artifact-ttl", c.ArtifactTTL, "How long output artifacts are kept")
	fs.StringVar(&c.JanitorSchedule, "janitor-schedule", c.JanitorSchedule, "Cron schedule of the artifact janitor")
	fs.BoolVar(&c.Metrics, "metrics", c.Metrics, "Expose Prometheus metrics on /metrics")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debugging (pprof) - WARNING: do not enable in production")
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.HTTPAddr) == "":
		return errors.New("http address is required")
	case strings.TrimSpace(c.StaticDir) == "":
		return errors.New("static directory is required")
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("max upload bytes must be > 0 (got %d)", c.MaxUploadBytes)
	case c.MaxPixels <= 0:
		return fmt.Errorf("max pixels must be > 0 (got %d)", c.MaxPixels)
	case c.MaxConcurrent <= 0:
		return fmt.Errorf("max concurrent must be > 0 (got %d)", c.MaxConcurrent)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("jpeg quality must be within 1-100 (got %d)", c.JPEGQuality)
	case c.ArtifactTTL <= 0:
		return fmt.Errorf("artifact ttl must be > 0 (got %s)", c.ArtifactTTL)
	}
	return nil
}

// DebugLogging reports whether verbose logging was requested.
func (c Config) DebugLogging() bool {
	return strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug")
}
