package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referrals/internal/platform/config"
)

func TestOptionsApplyOverrides(t *testing.T) {
	opts, err := options(config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/2",
		PoolSize:    7,
		ReadTimeout: 250 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, clientName, opts.ClientName)
}

func TestOptionsKeepURLDefaultsForZeroValues(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://localhost:6379/0?pool_size=3"})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.PoolSize)
}

func TestOptionsRejectBadURL(t *testing.T) {
	_, err := options(config.RedisConfig{URL: "http://not-redis"})
	require.ErrorContains(t, err, "parse REDIS_URL")
}

func TestNewWithoutURLIsDisabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
