package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.ServerPort)
	assert.Equal(t, "9092", cfg.MetricsPort)
	assert.Equal(t, "6060", cfg.PprofPort)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "publimicro", cfg.Repositories.Postgres.DB)
}

func TestLoadRequiresPostgresPassword(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "")

	_, err := Load()

	assert.Error(t, err)
}

func TestShutdownTimeoutFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "30")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestShutdownTimeoutIgnoresGarbage(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")

	for _, bad := range []string{"zero", "-3", "0"} {
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", bad)
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	}
}
