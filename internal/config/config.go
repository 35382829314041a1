// Package config loads the portal's settings from PORTAL_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the runtime configuration of the portal.
type Config struct {
	Addr          string        `env:"PORTAL_ADDR" envDefault:":8080"`
	DBPath        string        `env:"PORTAL_DB_PATH" envDefault:"data/portal.db"`
	MediaDir      string        `env:"PORTAL_MEDIA_DIR" envDefault:"data/media"`
	JWTSecret     string        `env:"PORTAL_JWT_SECRET"`
	TokenTTL      time.Duration `env:"PORTAL_TOKEN_TTL" envDefault:"24h"`
	CookieSecure  bool          `env:"PORTAL_COOKIE_SECURE" envDefault:"false"`
	LogLevel      string        `env:"PORTAL_LOG_LEVEL" envDefault:"info"`
	ThumbnailSize uint          `env:"PORTAL_THUMBNAIL_SIZE" envDefault:"300"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment without validating it. Commands that need to
// sign tokens call Validate.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("PORTAL_ADDR is empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("PORTAL_DB_PATH is empty"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("PORTAL_JWT_SECRET must be set to at least 32 bytes"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("PORTAL_TOKEN_TTL must be positive"))
	}
	if c.ThumbnailSize == 0 {
		errs = append(errs, errors.New("PORTAL_THUMBNAIL_SIZE must be positive"))
	}
	return errors.Join(errs...)
}
