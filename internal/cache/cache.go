package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gkiss/odp-extremes-service/internal/models"
)

// Cache stores at most one computed extremes bundle per date so a re-render
// of the same date does not refetch the feed. Keys are ISO dates.
type Cache interface {
	Get(ctx context.Context, date string) (models.DailyExtremes, bool, error)
	Set(ctx context.Context, date string, value models.DailyExtremes, ttl time.Duration) error
}

// InMemoryCache implements Cache with a map and TTL-based expiration.
// Expired entries are removed on access. Safe for concurrent use.
type InMemoryCache struct {
	mu    sync.Mutex
	clock clockwork.Clock
	data  map[string]cacheEntry
}

type cacheEntry struct {
	value     models.DailyExtremes
	expiresAt time.Time
}

// NewInMemoryCache returns an empty in-memory cache using the real clock.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithClock(clockwork.NewRealClock())
}

// NewInMemoryCacheWithClock allows tests to control expiry with a fake clock.
func NewInMemoryCacheWithClock(clock clockwork.Clock) *InMemoryCache {
	return &InMemoryCache{
		clock: clock,
		data:  make(map[string]cacheEntry),
	}
}

// Get returns the cached bundle for date if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, date string) (models.DailyExtremes, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[date]
	if !ok {
		return models.DailyExtremes{}, false, nil
	}
	if c.clock.Now().After(entry.expiresAt) {
		delete(c.data, date)
		return models.DailyExtremes{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the bundle for date. The entry expires after ttl and is removed
// on the next Get.
func (c *InMemoryCache) Set(ctx context.Context, date string, value models.DailyExtremes, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[date] = cacheEntry{
		value:     value,
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}
