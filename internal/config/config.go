// Package config loads server configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultLogLevel    = "info"
	DefaultMaxUploadMB = 50
	DefaultSessionTTL  = 24 * time.Hour
)

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string
	// SessionKey is the 64-hex-char PASETO key for session tokens.
	// Empty means generate a random key at startup (dev only: sessions
	// do not survive restarts and do not work across instances).
	SessionKey string
	// SessionTTL is how long an upload session stays valid.
	SessionTTL time.Duration
	// MaxUploadMB caps the size of an uploaded export zip.
	MaxUploadMB int64
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        envOr("ADDR", DefaultAddr),
		SessionKey:  os.Getenv("SESSION_KEY"),
		SessionTTL:  DefaultSessionTTL,
		MaxUploadMB: DefaultMaxUploadMB,
		LogLevel:    envOr("LOG_LEVEL", DefaultLogLevel),
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = ttl
	}

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || mb <= 0 {
			return nil, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer, got %q", v)
		}
		cfg.MaxUploadMB = mb
	}

	return cfg, nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
