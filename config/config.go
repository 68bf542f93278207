// Package config loads service configuration from GARMIN_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "GARMIN"

// Config holds everything the service needs to run. Command-line flags may
// override individual fields after FromEnv.
type Config struct {
	// ServiceSecret is the shared secret downstream callers present in the
	// X-API-Key header.
	ServiceSecret string `envconfig:"SERVICE_SECRET" required:"true"`
	// Port is the HTTP listen port.
	Port int `envconfig:"PORT" default:"8000"`
	// TokenDir is where per-user credential files live (file backend).
	TokenDir string `envconfig:"TOKEN_DIR" default:"./tokens"`
	// TokenBackend selects credential persistence: "file" or "bolt".
	TokenBackend string `envconfig:"TOKEN_BACKEND" default:"file"`
	// ChallengeTTL bounds how long an MFA challenge stays resumable.
	ChallengeTTL time.Duration `envconfig:"CHALLENGE_TTL" default:"600s"`
	// AllowedOrigins configures CORS for browser-based callers.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// FromEnv reads configuration from the environment.
func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("reading configuration from environment: %w", err)
	}
	// envconfig's required tag accepts a set-but-empty variable; an empty
	// secret would leave the API-key gate matching the empty header.
	if c.ServiceSecret == "" {
		return Config{}, fmt.Errorf("GARMIN_SERVICE_SECRET must not be empty")
	}
	if c.TokenBackend != "file" && c.TokenBackend != "bolt" {
		return Config{}, fmt.Errorf("unknown token backend %q (want file or bolt)", c.TokenBackend)
	}
	return c, nil
}
