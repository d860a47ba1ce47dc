package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourvoice/identity/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/yourvoice")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.StorageConfigured())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveSessionTTL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/yourvoice")
	t.Setenv("SESSION_TTL", "-1h")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestStorageConfigured(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/yourvoice")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.StorageConfigured())
}
