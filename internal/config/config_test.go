package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("SESSION_KEY", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Empty(t, cfg.SessionKey)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, int64(DefaultMaxUploadMB), cfg.MaxUploadMB)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDR", "0.0.0.0:9000")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SESSION_TTL", "")
	t.Setenv("MAX_UPLOAD_MB", "-5")
	_, err = Load()
	assert.Error(t, err)
}
