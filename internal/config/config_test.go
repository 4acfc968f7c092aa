package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8084", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 600, cfg.VerifyRatePerMinute)
	assert.False(t, cfg.OTelEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("CARD_SECRET", "s3cret")
	t.Setenv("CARD_SALT", "branch-salt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.CardSecret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_DB")

	t.Setenv("REDIS_DB", "0")
	t.Setenv("CARD_SECRET", "s3cret")
	t.Setenv("CARD_SALT", "short")
	_, err = Load()
	assert.ErrorContains(t, err, "CARD_SALT")

	t.Setenv("CARD_SECRET", "")
	t.Setenv("VERIFY_RATE_PER_MINUTE", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "VERIFY_RATE_PER_MINUTE")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_FORMAT=console\nREDIS_ADDR=localhost:6390\n"), 0o600))

	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("LOG_FORMAT")
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("REDIS_ADDR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "localhost:6390", cfg.RedisAddr)

	// godotenv leaves the variables set for the rest of the process
	os.Unsetenv("LOG_FORMAT")
	os.Unsetenv("REDIS_ADDR")

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
