package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbox/internal/platform/config"
)

func TestOptions(t *testing.T) {
	t.Run("applies overrides", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{
			URL:          "redis://:pw@cache:6380/2",
			PoolSize:     25,
			MinIdleConns: 4,
			ReadTimeout:  time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, "pw", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 25, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.ReadTimeout)
	})

	t.Run("zero values keep URL defaults", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{URL: "redis://cache:6379/0?dial_timeout=2s"})
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
	})

	t.Run("bad URL", func(t *testing.T) {
		_, err := Options(config.RedisConfig{URL: "http://cache"})
		assert.ErrorContains(t, err, "parse redis URL")
	})
}

func TestNew_NotConfigured(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
