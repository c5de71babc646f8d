package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Minute, cfg.AuditTrail.SweepInterval)
	assert.Equal(t, 500, cfg.AuditTrail.TrimBatchSize)
	assert.Equal(t, 10, cfg.AuditTrail.DefaultRetentionDays)
	assert.Equal(t, "audittrail:settings", cfg.Redis.SettingsKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AUDITTRAIL_ADDR", ":9090")
	t.Setenv("AUDITTRAIL_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://audittrail@localhost/audittrail")
	t.Setenv("AUDITTRAIL_SWEEP_INTERVAL", "1h")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.AuditTrail.SweepInterval)
}

func TestFromEnvRejectsInvalidCombinations(t *testing.T) {
	t.Run("postgres without a database url", func(t *testing.T) {
		t.Setenv("AUDITTRAIL_STORE", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unknown store driver", func(t *testing.T) {
		t.Setenv("AUDITTRAIL_STORE", "sqlite")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("AUDITTRAIL_SWEEP_INTERVAL", "soon")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}
