package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "url:demo", "https://example.com", time.Hour))

	val, err := c.Get(ctx, "url:demo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", val)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := NewMemoryCache()

	_, err := c.Get(context.Background(), "url:absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "url:demo", "https://example.com", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "url:demo")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "url:demo", "https://example.com", 0))

	val, err := c.Get(ctx, "url:demo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", val)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "url:demo", "https://example.com", time.Hour))
	require.NoError(t, c.Delete(ctx, "url:demo"))

	_, err := c.Get(ctx, "url:demo")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting an absent key is not an error
	assert.NoError(t, c.Delete(ctx, "url:demo"))
}

// A Set racing with the lazy eviction of an expired entry must not lose
// the fresh value: eviction re-checks the entry under the write lock.
func TestMemoryCache_EvictionKeepsConcurrentFreshWrite(t *testing.T) {
	c := NewMemoryCache().(*memoryCache)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		c.mu.Lock()
		c.entries["url:demo"] = memoryEntry{value: "stale", expiresAt: time.Now().Add(-time.Minute)}
		c.mu.Unlock()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.Get(ctx, "url:demo")
		}()
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "url:demo", "https://example.com/fresh", time.Hour)
		}()
		wg.Wait()

		val, err := c.Get(ctx, "url:demo")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/fresh", val)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "url:demo", "https://example.com", time.Hour)
			_, _ = c.Get(ctx, "url:demo")
			_ = c.Delete(ctx, "url:demo")
		}()
	}
	wg.Wait()
}
