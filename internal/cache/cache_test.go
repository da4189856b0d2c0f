package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geomark/internal/config"
)

func TestDisabledCacheIsNoOp(t *testing.T) {
	c := New(config.CacheConfig{})
	ctx := context.Background()

	assert.False(t, c.Enabled())

	var dest []string
	assert.False(t, c.GetJSON(ctx, KeyFolders, &dest))
	assert.Nil(t, dest)

	// none of these should panic or error without a client
	c.SetJSON(ctx, KeyFolders, []string{"a"})
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.Close())
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.False(t, c.GetJSON(ctx, KeyStats, &struct{}{}))
	c.SetJSON(ctx, KeyStats, 1)
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.Close())
}

func TestEnabledWithAddress(t *testing.T) {
	c := New(config.CacheConfig{RedisAddr: "localhost:6379", TTLSecs: 30})
	assert.True(t, c.Enabled())
	require.NoError(t, c.Close())
}
