package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func configFor(t *testing.T, mr *miniredis.Miniredis) Config {
	t.Helper()
	return Config{Host: mr.Host(), Port: mr.Port(), PoolSize: 2}
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewClient(configFor(t, mr), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	assert.NoError(t, c.Close())
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := configFor(t, mr)
	mr.Close()

	_, err := NewClient(cfg, zaptest.NewLogger(t))

	assert.ErrorContains(t, err, "unreachable")
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache.internal:6380", Config{Host: "cache.internal", Port: "6380"}.Addr())
	assert.Equal(t, "[::1]:6379", Config{Host: "::1", Port: "6379"}.Addr())
}
