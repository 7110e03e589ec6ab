package shortcode

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by cache and provider tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(clock *fakeClock) *Cache {
	config := DefaultCacheConfig()
	config.Now = clock.Now
	return NewCache(config)
}

func TestNewCache(t *testing.T) {
	cache := NewCache(CacheConfig{})

	assert.NotNil(t, cache)
	assert.Equal(t, DefaultCacheMaxEntries, cache.config.MaxEntries)
	assert.NotNil(t, cache.config.Now)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_GetSet(t *testing.T) {
	cache := newTestCache(newFakeClock())

	_, found := cache.Get("field:1:abc")
	assert.False(t, found)

	cache.Set("field:1:abc", "Widget", time.Minute)
	value, found := cache.Get("field:1:abc")
	assert.True(t, found)
	assert.Equal(t, "Widget", value)
}

func TestCache_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock)

	cache.Set("k", 1, time.Minute)

	clock.Advance(time.Minute - time.Nanosecond)
	_, found := cache.Get("k")
	assert.True(t, found, "entry younger than its ttl must be readable")

	clock.Advance(time.Nanosecond)
	_, found = cache.Get("k")
	assert.False(t, found, "entry whose age equals its ttl is stale")
	assert.Equal(t, 0, cache.Len(), "stale entry is evicted on read")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Expired)
}

func TestCache_SetOverwrites(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock)

	cache.Set("k", "old", time.Minute)
	clock.Advance(50 * time.Second)
	cache.Set("k", "new", time.Minute)
	clock.Advance(50 * time.Second)

	value, found := cache.Get("k")
	require.True(t, found, "overwrite resets the insertion time")
	assert.Equal(t, "new", value)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_NonPositiveTTLIsNoop(t *testing.T) {
	cache := newTestCache(newFakeClock())

	cache.Set("k", 1, 0)
	cache.Set("j", 1, -time.Second)

	assert.Equal(t, 0, cache.Len())
}

func TestCache_Invalidate(t *testing.T) {
	cache := newTestCache(newFakeClock())
	cache.Set("item:42:aaaa", 1, time.Minute)
	cache.Set("typed:42:bbbb", 2, time.Minute)
	cache.Set("item:7:cccc", 3, time.Minute)
	cache.Set("list:product:dddd", 4, time.Minute)

	removed, err := cache.Invalidate(`^[a-z]+:42:`)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, cache.Len())

	_, err = cache.Invalidate(`([`)
	assert.Error(t, err)
}

func TestCache_InvalidatePrefix(t *testing.T) {
	cache := newTestCache(newFakeClock())
	cache.Set(CacheKey(CacheKindItem, "42", map[string]string{"field": "title"}, nil), 1, time.Minute)
	cache.Set(CacheKey(CacheKindItem, "42", map[string]string{"field": "price"}, nil), 2, time.Minute)
	cache.Set(CacheKey(CacheKindItem, "420", map[string]string{"field": "title"}, nil), 3, time.Minute)

	removed := cache.InvalidatePrefix(CacheScopePrefix(CacheKindItem, "42"))

	assert.Equal(t, 2, removed, "scope prefix must not match item 420")
	assert.Equal(t, 1, cache.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	cache := newTestCache(newFakeClock())
	cache.Set("a", 1, time.Minute)
	cache.Set("b", 2, time.Minute)

	assert.True(t, cache.Delete("a"))
	assert.False(t, cache.Delete("a"))

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, cache.Keys())
}

func TestCache_Cleanup(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock)
	cache.Set("short", 1, time.Minute)
	cache.Set("long", 2, 5*time.Minute)

	clock.Advance(2 * time.Minute)
	removed := cache.Cleanup()

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"long"}, cache.Keys())
}

func TestCache_FIFOEviction(t *testing.T) {
	config := DefaultCacheConfig()
	config.MaxEntries = 3
	cache := NewCache(config)

	for i := 0; i < 4; i++ {
		cache.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}

	assert.Equal(t, 3, cache.Len())
	_, found := cache.Get("k0")
	assert.False(t, found, "oldest entry is evicted first")
	_, found = cache.Get("k3")
	assert.True(t, found)
	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestCache_StatsAndHitRate(t *testing.T) {
	cache := newTestCache(newFakeClock())
	assert.Equal(t, 0.0, cache.HitRate())

	cache.Set("k", 1, time.Minute)
	cache.Get("k")
	cache.Get("k")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.EntryCount)
	assert.InDelta(t, 2.0/3.0, cache.HitRate(), 0.0001)
}

func TestCacheKey(t *testing.T) {
	t.Run("deterministic across map order", func(t *testing.T) {
		a := map[string]string{"field": "price", "format": "currency", "post_id": "42"}
		b := map[string]string{"post_id": "42", "format": "currency", "field": "price"}
		assert.Equal(t, CacheKey(CacheKindItem, "42", a, nil), CacheKey(CacheKindItem, "42", b, nil))
	})

	t.Run("context fields change the key", func(t *testing.T) {
		attrs := map[string]string{"key": "sku"}
		k1 := CacheKey(CacheKindMeta, "42", attrs, map[string]string{"user": "1"})
		k2 := CacheKey(CacheKindMeta, "42", attrs, map[string]string{"user": "2"})
		assert.NotEqual(t, k1, k2)
	})

	t.Run("shape", func(t *testing.T) {
		key := CacheKey(CacheKindList, "product", nil, nil)
		assert.Regexp(t, `^list:product:[0-9a-f]{16}$`, key)
	})
}

func TestCache_Concurrent(t *testing.T) {
	cache := newTestCache(newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%5)
			cache.Set(key, n, time.Minute)
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cache.Len())
}
