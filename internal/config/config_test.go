package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "couple.events", cfg.AMQPExchange)
	assert.Equal(t, 2*time.Minute, cfg.PresenceTTL)
	assert.Equal(t, int64(50), cfg.MaxUploadMB)
	assert.Equal(t, time.Minute, cfg.PurgeInterval)
	assert.Equal(t, 100, cfg.PurgeBatch)
	assert.Equal(t, 10*time.Minute, cfg.RateLimitIdle)
	assert.True(t, cfg.Development())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveUpload(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MAX_UPLOAD_MB", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesPurgeSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MEDIA_PURGE_INTERVAL", "30s")
	t.Setenv("MEDIA_PURGE_BATCH", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.PurgeInterval)
	assert.Equal(t, 25, cfg.PurgeBatch)

	t.Setenv("MEDIA_PURGE_INTERVAL", "0s")
	_, err = Load()
	require.Error(t, err)
}
