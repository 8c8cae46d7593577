package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "DATA_FILE", "AUTH_RATE_LIMIT", "SEED", "READ_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "data.json", cfg.DataFile)
	assert.Equal(t, 30, cfg.AuthRateLimit)
	assert.False(t, cfg.Seed)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("AUTH_RATE_LIMIT", "5")
	t.Setenv("SEED", "true")
	t.Setenv("WRITE_TIMEOUT", "2s")

	cfg := Load()
	assert.Equal(t, ":8081", cfg.Addr())
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 5, cfg.AuthRateLimit)
	assert.True(t, cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUTH_RATE_LIMIT", "lots")
	t.Setenv("SEED", "maybe")

	cfg := Load()
	assert.Equal(t, 30, cfg.AuthRateLimit)
	assert.False(t, cfg.Seed)
}

func TestValidate(t *testing.T) {
	cfg := Config{StoreBackend: "sqlite", AuthRateLimit: 1}
	assert.ErrorContains(t, cfg.Validate(), "unknown STORE_BACKEND")

	cfg = Config{StoreBackend: BackendMongo, AuthRateLimit: 1}
	assert.Error(t, cfg.Validate())

	cfg = Config{StoreBackend: BackendFile, DataFile: "x.json", AuthRateLimit: 0}
	assert.ErrorContains(t, cfg.Validate(), "AUTH_RATE_LIMIT")
}
