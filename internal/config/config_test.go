package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "REDIS_ADDR", "REDIS_DB", "KAFKA_BROKERS",
		"CARE_SWEEP_INTERVAL", "NIGHT_SWEEP_INTERVAL", "MEDICATION_SWEEP_INTERVAL", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "carehome.alerts", cfg.Kafka.AlertTopic)
	assert.Equal(t, time.Hour, cfg.Sweep.CareInterval)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.NightInterval)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.MedicationInterval)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Error(t, cfg.Validate(), "DATABASE_URL is required")
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://care:care@db/care?sslmode=disable")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MEDICATION_SWEEP_INTERVAL", "2m")
	t.Setenv("TIMEZONE", "Europe/Dublin")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Minute, cfg.Sweep.MedicationInterval)
	assert.Equal(t, "Europe/Dublin", cfg.Timezone)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidInterval(t *testing.T) {
	t.Setenv("CARE_SWEEP_INTERVAL", "hourly")
	_, err := Load()
	assert.ErrorContains(t, err, "CARE_SWEEP_INTERVAL")

	t.Setenv("CARE_SWEEP_INTERVAL", "-1m")
	_, err = Load()
	assert.ErrorContains(t, err, "must be positive")
}

func TestGetEnvInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "twelve")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
	t.Setenv("TEST_INT", "12")
	assert.Equal(t, 12, getEnvInt("TEST_INT", 7))
}
