package data

import (
	"context"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	bars      []Bar
	fetchedAt time.Time
}

// BarCache keeps recently fetched history series so repeated analytics
// requests within the TTL share one upstream call.
type BarCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry // key: SYMBOL/interval/range
	ttl     time.Duration
	now     func() time.Time
}

func NewBarCache(ttl time.Duration) *BarCache {
	return &BarCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached bars for key and whether they are still fresh.
func (c *BarCache) Get(key string) (bars []Bar, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return entry.bars, c.now().Sub(entry.fetchedAt) < c.ttl, true
}

// Put stores bars under key.
func (c *BarCache) Put(key string, bars []Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{bars: bars, fetchedAt: c.now()}
}

// Fetch returns fresh cached bars or refetches them from src. When the
// refetch fails and an older entry exists, the stale bars are returned with
// stale set and a nil error.
func (c *BarCache) Fetch(ctx context.Context, src BarSource, symbol, interval, rng string) (bars []Bar, stale bool, err error) {
	key := SeriesKey(symbol, interval, rng)

	cached, fresh, ok := c.Get(key)
	if ok && fresh {
		return cached, false, nil
	}

	bars, err = src.FetchBars(ctx, symbol, interval, rng)
	if err != nil {
		if ok {
			return cached, true, nil
		}
		return nil, false, err
	}

	c.Put(key, bars)
	return bars, false, nil
}

// Reset drops cached series, optionally only those of one symbol.
func (c *BarCache) Reset(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if symbol == "" {
		// Reset all
		count := len(c.entries)
		c.entries = make(map[string]cacheEntry)
		return count
	}

	prefix := NormalizeSymbol(symbol) + "/"
	count := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			count++
		}
	}
	return count
}

// Len returns the number of cached series.
func (c *BarCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
