package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// SourceCache keeps parsed units keyed by file path. An entry is only valid
// for the exact bytes it was parsed from; any change to the source misses.
// Units are immutable after parse, so a hit may be shared freely.
type SourceCache struct {
	lru   *StatsCache
	stale atomic.Int64
}

type sourceEntry struct {
	hash string
	unit *frontend.Unit
}

// NewSourceCache creates a cache holding at most maxEntries units
// (0 means unlimited).
func NewSourceCache(maxEntries int) *SourceCache {
	return &SourceCache{lru: NewStatsCache(Options{MaxSize: maxEntries})}
}

// Lookup returns the unit parsed from src at path, if cached.
func (c *SourceCache) Lookup(path string, src []byte) (*frontend.Unit, bool) {
	val, found := c.lru.Get(path)
	if !found {
		return nil, false
	}
	entry := val.(sourceEntry)
	if entry.hash != HashBytes(src) {
		c.stale.Add(1)
		c.lru.Delete(path)
		return nil, false
	}
	return entry.unit, true
}

// Store records the unit parsed from src at path.
func (c *SourceCache) Store(path string, src []byte, unit *frontend.Unit) {
	c.lru.Set(path, sourceEntry{hash: HashBytes(src), unit: unit})
}

// Len returns the number of cached units.
func (c *SourceCache) Len() int {
	return c.lru.Len()
}

// Paths returns the cached file paths from most to least recently used.
func (c *SourceCache) Paths() []string {
	return c.lru.Keys()
}

// HitRate returns the share of lookups that found an entry, stale ones
// included.
func (c *SourceCache) HitRate() float64 {
	return c.lru.HitRate()
}

// Stats returns hit/miss counters. A stale entry counts as a hit of the
// underlying LRU and is reported separately in StaleCount.
func (c *SourceCache) Stats() Stats {
	stats := c.lru.Stats()
	stats.StaleCount = c.stale.Load()
	return stats
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
