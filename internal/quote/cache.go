package quote

import (
	"fmt"
	"math"
	"sync"
	"time"

	"cityhop/internal/geo"
)

// cacheEntry pairs a cached quote list with its insertion time.
type cacheEntry struct {
	quotes    []FareQuote
	cachedAt  time.Time
}

// Cache is a concurrent, coarse-keyed map from a rounded (pickup,
// drop) pair to the most recent quote list. Entries never expire via
// a background sweep; staleness is checked by the reader at lookup
// time, and a stale or absent key is simply overwritten wholesale by
// the next successful aggregation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]cacheEntry), ttl: ttl}
}

// Key rounds both coordinates to 4 decimal places (~11m) so nearby
// requests share a cache entry.
func Key(pickup, drop geo.Coordinate) string {
	round := func(f float64) float64 {
		return math.Round(f*10000) / 10000
	}
	return fmt.Sprintf("%.4f,%.4f->%.4f,%.4f", round(pickup.Lat), round(pickup.Lng), round(drop.Lat), round(drop.Lng))
}

// Get returns the cached quotes for key if present and younger than
// the cache's TTL.
func (c *Cache) Get(key string) ([]FareQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.cachedAt) >= c.ttl {
		return nil, false
	}

	out := make([]FareQuote, len(entry.quotes))
	copy(out, entry.quotes)
	return out, true
}

// Put stores quotes under key with the current timestamp. An empty
// list is never stored, matching the aggregator's "only cache
// non-empty results" rule.
func (c *Cache) Put(key string, quotes []FareQuote) {
	if len(quotes) == 0 {
		return
	}
	stored := make([]FareQuote, len(quotes))
	copy(stored, quotes)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{quotes: stored, cachedAt: time.Now()}
}

// Len reports the number of cached keys, for /stats.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
