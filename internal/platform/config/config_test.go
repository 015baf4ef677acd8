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
	assert.Equal(t, 8, cfg.Referral.CodeLength)
	assert.Equal(t, 5, cfg.Referral.MaxGenerationAttempts)
	assert.Equal(t, 5*time.Second, cfg.Referral.TxTimeout)
	assert.Equal(t, 3, cfg.Referral.TxRetries)
	assert.Equal(t, 30*time.Second, cfg.Referral.LeaderboardTTL)
	assert.Equal(t, "referral.events", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 30, cfg.RateLimit.WriteLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.RedeemWindow)
	assert.False(t, cfg.RateLimit.Disabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REFERRAL_CODE_LENGTH", "10")
	t.Setenv("REDIS_POOL_SIZE", "42")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Referral.CodeLength)
	assert.Equal(t, 42, cfg.Redis.PoolSize)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("unparseable value", func(t *testing.T) {
		t.Setenv("REFERRAL_TX_RETRIES", "many")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("code length out of range", func(t *testing.T) {
		t.Setenv("REFERRAL_CODE_LENGTH", "4")
		_, err := FromEnv()
		require.ErrorContains(t, err, "REFERRAL_CODE_LENGTH")
	})

	t.Run("negative rate limit", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_REDEEMS", "-1")
		_, err := FromEnv()
		require.ErrorContains(t, err, "RATE_LIMIT_REDEEMS")
	})

	t.Run("zero window with a limit", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_WRITES_WINDOW", "0s")
		_, err := FromEnv()
		require.ErrorContains(t, err, "windows must be positive")
	})

	t.Run("unknown log format", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "xml")
		_, err := FromEnv()
		require.ErrorContains(t, err, "LOG_FORMAT")
	})
}
