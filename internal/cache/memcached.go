package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/gkiss/odp-extremes-service/internal/models"
)

const keyPrefix = "extremes:"

// MemcachedCache implements Cache on memcached, for deployments where several
// replicas should share one warm report per date.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and
// maxIdleConns use package defaults when zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) key(date string) string {
	return keyPrefix + date
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, date string) (models.DailyExtremes, bool, error) {
	if ctx.Err() != nil {
		return models.DailyExtremes{}, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(date))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return models.DailyExtremes{}, false, nil
		}
		return models.DailyExtremes{}, false, err
	}
	var bundle models.DailyExtremes
	if err := json.Unmarshal(item.Value, &bundle); err != nil {
		return models.DailyExtremes{}, false, err
	}
	return bundle, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, date string, value models.DailyExtremes, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	expSec := int32(ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // memcached treats larger values as unix timestamps
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(date),
		Value:      raw,
		Expiration: expSec,
	})
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
