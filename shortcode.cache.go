package shortcode

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is a key/value store with a per-entry time-to-live. It is shared by
// all directives of an engine; writes are last-writer-wins.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]*CacheEntry
	config    CacheConfig
	stats     CacheStats
	evictList []string // insertion order for FIFO eviction
	logger    *zap.Logger
}

// CacheEntry holds a cached value with its insertion time and TTL.
type CacheEntry struct {
	Value      any
	InsertedAt time.Time
	TTL        time.Duration
}

// validAt reports whether the entry may still be read at now.
func (e *CacheEntry) validAt(now time.Time) bool {
	return now.Sub(e.InsertedAt) < e.TTL
}

// CacheConfig configures the cache behavior.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached values. Default: 1000.
	MaxEntries int

	// Now is the clock. Default: time.Now.
	Now func() time.Time

	// Logger receives debug output for hits, misses and invalidations.
	Logger *zap.Logger
}

// CacheStats tracks cache performance metrics.
type CacheStats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Expired    int64
	EntryCount int
}

// DefaultCacheConfig returns sensible defaults for the cache.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: DefaultCacheMaxEntries,
		Now:        time.Now,
	}
}

// NewCache creates a new cache.
func NewCache(config CacheConfig) *Cache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheMaxEntries
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		entries:   make(map[string]*CacheEntry),
		config:    config,
		evictList: make([]string, 0, config.MaxEntries),
		logger:    logger,
	}
}

// Get returns the value if the entry is younger than its TTL. Stale entries
// are evicted and reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	now := c.config.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.stats.Misses++
		c.logger.Debug(LogMsgCacheMiss, zap.String(LogFieldCacheKey, key))
		return nil, false
	}

	if !entry.validAt(now) {
		c.removeLocked(key)
		c.stats.Misses++
		c.stats.Expired++
		c.logger.Debug(LogMsgCacheMiss, zap.String(LogFieldCacheKey, key))
		return nil, false
	}

	c.stats.Hits++
	c.logger.Debug(LogMsgCacheHit, zap.String(LogFieldCacheKey, key))
	return entry.Value, true
}

// Set stores value under key, overwriting any existing entry. A non-positive
// ttl is a no-op.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.config.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	} else if len(c.entries) >= c.config.MaxEntries {
		c.evictOldest()
	}

	c.entries[key] = &CacheEntry{
		Value:      value,
		InsertedAt: now,
		TTL:        ttl,
	}
	c.evictList = append(c.evictList, key)
	c.stats.EntryCount = len(c.entries)
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return false
	}
	c.removeLocked(key)
	return true
}

// Invalidate removes every key matching the regular expression pattern and
// returns how many were removed.
func (c *Cache) Invalidate(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, NewInvalidPatternError(pattern, err)
	}
	return c.invalidateMatching(pattern, re.MatchString), nil
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) int {
	return c.invalidateMatching(prefix, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (c *Cache) invalidateMatching(pattern string, match func(string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if match(key) {
			c.removeLocked(key)
			removed++
		}
	}
	c.logger.Debug(LogMsgCacheInvalidated,
		zap.String(LogFieldPattern, pattern),
		zap.Int(LogFieldRemoved, removed))
	return removed
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.evictList = make([]string, 0, c.config.MaxEntries)
	c.stats.EntryCount = 0
}

// Cleanup removes expired entries. Call periodically for long-running applications.
func (c *Cache) Cleanup() int {
	now := c.config.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !entry.validAt(now) {
			c.removeLocked(key)
			c.stats.Expired++
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including stale ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns all stored keys.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (c *Cache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(total)
}

// removeLocked deletes key; c.mu must be held.
func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.evictList {
		if k == key {
			c.evictList = append(c.evictList[:i], c.evictList[i+1:]...)
			break
		}
	}
	c.stats.EntryCount = len(c.entries)
}

// evictOldest removes the oldest entry (simple FIFO).
func (c *Cache) evictOldest() {
	if len(c.evictList) == 0 {
		return
	}
	oldest := c.evictList[0]
	c.evictList = c.evictList[1:]
	delete(c.entries, oldest)
	c.stats.Evictions++
	c.stats.EntryCount = len(c.entries)
}

// CacheKey builds a deterministic key: "<kind>:<scope>:<hash>". The hash covers
// the normalized attributes and the relevant context fields, so keys are
// stable regardless of map iteration order. scope lets callers drop every
// entry for one item with InvalidatePrefix(CacheScopePrefix(kind, scope)).
func CacheKey(kind, scope string, attrs map[string]string, contextFields map[string]string) string {
	return CacheScopePrefix(kind, scope) + hashKeyData(attrs, contextFields)
}

// CacheScopePrefix returns the key prefix shared by all entries of kind/scope.
func CacheScopePrefix(kind, scope string) string {
	return kind + ":" + scope + ":"
}

// hashKeyData hashes attribute and context maps. json.Marshal sorts map keys.
func hashKeyData(attrs, contextFields map[string]string) string {
	payload := struct {
		A map[string]string `json:"a"`
		C map[string]string `json:"c"`
	}{A: attrs, C: contextFields}

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return "error"
	}
	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:8])
}
