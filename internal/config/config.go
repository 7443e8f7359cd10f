// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs at startup. Every knob comes
// from an ALMANAC_ prefixed environment variable.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `env:"ALMANAC_ADDR" envDefault:":8080"`

	// DBPath selects the SQLite database file. Empty means the in-memory
	// store, which loses everything on restart.
	DBPath string `env:"ALMANAC_DB_PATH"`

	// AuthMode picks the bearer verifier: "jwt" or "static".
	AuthMode string `env:"ALMANAC_AUTH_MODE" envDefault:"jwt"`

	// JWTSecret signs and verifies HS256 tokens. Required in jwt mode.
	JWTSecret string `env:"ALMANAC_JWT_SECRET"`
	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string `env:"ALMANAC_JWT_ISSUER"`
	// JWTAudience, when set, must match the token's aud claim.
	JWTAudience string `env:"ALMANAC_JWT_AUDIENCE"`

	// StaticTokens lists token=uid pairs, comma separated. Required in
	// static mode.
	StaticTokens []string `env:"ALMANAC_STATIC_TOKENS" envSeparator:","`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"ALMANAC_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and validates cross-field constraints.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.AuthMode {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("ALMANAC_JWT_SECRET is required in jwt mode")
		}
	case "static":
		if len(c.StaticTokens) == 0 {
			return fmt.Errorf("ALMANAC_STATIC_TOKENS is required in static mode")
		}
		for _, pair := range c.StaticTokens {
			if !strings.Contains(pair, "=") {
				return fmt.Errorf("static token %q is not a token=uid pair", pair)
			}
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// TokenPairs splits StaticTokens into token to uid mappings.
func (c Config) TokenPairs() map[string]string {
	out := make(map[string]string, len(c.StaticTokens))
	for _, pair := range c.StaticTokens {
		token, uid, ok := strings.Cut(pair, "=")
		if !ok || token == "" || uid == "" {
			continue
		}
		out[token] = uid
	}
	return out
}
