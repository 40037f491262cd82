package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSize is the default maximum number of entries.
	DefaultMaxSize = 100

	// DefaultTTL is the default entry lifetime.
	DefaultTTL = 30 * time.Second
)

// Fingerprint canonicalizes a search into a cache key: the selector text and
// the identity of the root it ran under ("desktop" for the desktop root).
func Fingerprint(selectorText, rootIdentity string) uint64 {
	if rootIdentity == "" {
		rootIdentity = "desktop"
	}

	var digest xxhash.Digest

	_, _ = digest.WriteString(selectorText)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(rootIdentity)

	return digest.Sum64()
}

// entry is one cached search result.
type entry struct {
	element      *element.Element
	insertedAt   time.Time
	lastAccessed time.Time
	accessCount  uint64
	appName      string
	windowTitle  string
}

// stats collects aggregate counters. All fields use atomic operations.
type stats struct {
	hits        atomic.Int64
	misses      atomic.Int64
	inserts     atomic.Int64
	evictions   atomic.Int64
	invalidated atomic.Int64
}

// Cache is a thread-safe fingerprint → element map with TTL expiry and
// least-recently-accessed eviction. One mutex serializes access; the lock is
// held only for map operations, never across property reads.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	maxSize int
	ttl     time.Duration
	logger  *zap.Logger
	stats   stats
}

// New creates a cache with the given capacity and TTL.
func New(maxSize int, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		entries: make(map[uint64]*entry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the cached element for the fingerprint if the entry is live:
// present, not expired, and the element still validates with a property read.
// Expired or invalid entries are removed and reported as misses.
//
// The element validation runs outside the lock; an invalidation racing with
// the read may let one stale hit through, which the next read will miss.
func (c *Cache) Get(ctx context.Context, fp uint64) *element.Element {
	c.mu.Lock()

	cached, exists := c.entries[fp]
	if !exists {
		c.mu.Unlock()
		c.stats.misses.Add(1)

		return nil
	}

	if time.Since(cached.insertedAt) > c.ttl {
		delete(c.entries, fp)
		c.mu.Unlock()
		c.stats.misses.Add(1)

		return nil
	}

	candidate := cached.element
	c.mu.Unlock()

	if !candidate.Validate(ctx) {
		c.mu.Lock()
		// Re-check: the entry may have been replaced while validating.
		if current, still := c.entries[fp]; still && current.element == candidate {
			delete(c.entries, fp)
		}
		c.mu.Unlock()
		c.stats.misses.Add(1)

		return nil
	}

	c.mu.Lock()
	if current, still := c.entries[fp]; still {
		current.lastAccessed = time.Now()
		current.accessCount++
	}
	c.mu.Unlock()

	c.stats.hits.Add(1)

	return candidate
}

// Insert records an element under the fingerprint, evicting the
// least-recently-accessed entry when full. The app name and window title
// scope the entry for event-driven invalidation.
func (c *Cache) Insert(fp uint64, elem *element.Element, appName, windowTitle string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fp]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[fp] = &entry{
		element:      elem,
		insertedAt:   now,
		lastAccessed: now,
		appName:      appName,
		windowTitle:  windowTitle,
	}

	c.stats.inserts.Add(1)
}

// evictOldest removes the entry with the smallest lastAccessed.
// Caller holds the lock. Linear in size, but only runs under eviction
// pressure, never on the hit path.
func (c *Cache) evictOldest() {
	var (
		oldestKey  uint64
		oldestTime time.Time
		found      bool
	)

	for key, cached := range c.entries {
		if !found || cached.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = cached.lastAccessed
			found = true
		}
	}

	if found {
		delete(c.entries, oldestKey)
		c.stats.evictions.Add(1)
		c.logStats()
	}
}

// InvalidateApp removes all entries scoped to the given application name.
func (c *Cache) InvalidateApp(appName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, cached := range c.entries {
		if strings.EqualFold(cached.appName, appName) {
			delete(c.entries, key)
			c.stats.invalidated.Add(1)
		}
	}
}

// InvalidateTitlePrefix removes all entries whose window title starts with
// the given prefix.
func (c *Cache) InvalidateTitlePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, cached := range c.entries {
		if strings.HasPrefix(cached.windowTitle, prefix) {
			delete(c.entries, key)
			c.stats.invalidated.Add(1)
		}
	}
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[uint64]*entry, c.maxSize)
	c.stats.invalidated.Add(int64(count))
}

// Size returns the current number of entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Hits returns the cumulative hit count.
func (c *Cache) Hits() int64 {
	return c.stats.hits.Load()
}

// Misses returns the cumulative miss count.
func (c *Cache) Misses() int64 {
	return c.stats.misses.Load()
}

// logStats emits aggregate counters at debug level.
func (c *Cache) logStats() {
	if ce := c.logger.Check(zap.DebugLevel, "Cache statistics"); ce != nil {
		ce.Write(
			zap.Int64("hits", c.stats.hits.Load()),
			zap.Int64("misses", c.stats.misses.Load()),
			zap.Int64("inserts", c.stats.inserts.Load()),
			zap.Int64("evictions", c.stats.evictions.Load()),
			zap.Int64("invalidated", c.stats.invalidated.Load()),
			zap.Int("current_size", len(c.entries)))
	}
}
