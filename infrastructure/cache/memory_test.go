package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/ports"
)

var _ ports.Cache = (*InMemoryCache)(nil)

func TestInMemoryCache_GetSetExpiry(t *testing.T) {
	// Arrange
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(0)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", 10))

	// Act
	got, found := c.Get(ctx, "k")
	now = now.Add(11 * time.Second)
	_, foundLater := c.Get(ctx, "k")

	// Assert
	assert.True(t, found)
	assert.Equal(t, "v", got)
	assert.False(t, foundLater)
}

func TestInMemoryCache_DeletePrefix(t *testing.T) {
	// Arrange
	c := NewInMemoryCache(0)
	ctx := context.Background()
	for _, k := range []string{"scope=a|x", "scope=a|y", "scope=b|x"} {
		require.NoError(t, c.Set(ctx, k, 1, 60))
	}

	// Act
	c.DeletePrefix(ctx, "scope=a|")

	// Assert
	assert.Equal(t, 1, c.Len())
	_, found := c.Get(ctx, "scope=b|x")
	assert.True(t, found)
}

func TestInMemoryCache_Sweep(t *testing.T) {
	// Arrange
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(0)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", 1, 1))
	require.NoError(t, c.Set(ctx, "long", 1, 100))

	// Act
	now = now.Add(5 * time.Second)
	c.sweep()

	// Assert
	assert.Equal(t, 1, c.Len())
}

func TestInMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewInMemoryCache(time.Millisecond)
	c.Close()
	c.Close()
}
