// Package valuecache implements the most-recent-value cache consulted by
// evaluation paths that need an item's latest values without touching
// durable storage. It tracks hit/miss counters and data/index memory
// accounting for diagnostics.
package valuecache

import (
	"sync"
	"time"

	"github.com/muammer-kilic/zabbix/internal/diag"
)

// Approximate per-entry memory costs used for accounting.
const (
	valueSize      = 32
	indexEntrySize = 80
)

// Value is one cached value.
type Value struct {
	Clock time.Time
	Value float64
}

type itemEntry struct {
	values []Value // newest last
}

// Config configures the cache.
type Config struct {
	// MaxValuesPerItem bounds each item's cached window.
	MaxValuesPerItem int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{MaxValuesPerItem: 16}
}

// Cache is the in-memory value cache. Safe for concurrent use.
type Cache struct {
	cfg Config

	mu         sync.RWMutex
	items      map[uint64]*itemEntry
	valueCount uint64
	hits       uint64
	misses     uint64
	memData    uint64
	memIndex   uint64
}

// New creates a value cache.
func New(cfg Config) *Cache {
	if cfg.MaxValuesPerItem <= 0 {
		cfg.MaxValuesPerItem = DefaultConfig().MaxValuesPerItem
	}
	return &Cache{
		cfg:   cfg,
		items: make(map[uint64]*itemEntry),
	}
}

// Put stores a value as the item's newest.
func (c *Cache) Put(itemID uint64, clock time.Time, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[itemID]
	if !ok {
		item = &itemEntry{}
		c.items[itemID] = item
		c.memIndex += indexEntrySize
	}

	if len(item.values) >= c.cfg.MaxValuesPerItem {
		copy(item.values, item.values[1:])
		item.values = item.values[:len(item.values)-1]
		c.memData -= valueSize
		c.valueCount--
	}
	item.values = append(item.values, Value{Clock: clock, Value: value})
	c.memData += valueSize
	c.valueCount++
}

// Last returns the item's newest value. Hit/miss accounting is updated on
// every call.
func (c *Cache) Last(itemID uint64) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[itemID]
	if !ok || len(item.values) == 0 {
		c.misses++
		return Value{}, false
	}
	c.hits++
	return item.values[len(item.values)-1], true
}

// Window returns up to n of the item's newest values, newest last.
func (c *Cache) Window(itemID uint64, n int) []Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[itemID]
	if !ok || len(item.values) == 0 {
		c.misses++
		return nil
	}
	c.hits++
	if n <= 0 || n > len(item.values) {
		n = len(item.values)
	}
	out := make([]Value, n)
	copy(out, item.values[len(item.values)-n:])
	return out
}

// DiagStats returns a point-in-time-consistent snapshot of the cache's
// diagnostic counters under a single lock acquisition.
func (c *Cache) DiagStats() []diag.NamedStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return []diag.NamedStat{
		{Name: "items", Value: uint64(len(c.items))},
		{Name: "values", Value: c.valueCount},
		{Name: "hits", Value: c.hits},
		{Name: "misses", Value: c.misses},
		{Name: "mem_data", Value: c.memData},
		{Name: "mem_index", Value: c.memIndex},
	}
}
