// Package historycache implements the in-memory history cache: recent
// values per item, pending rows awaiting flush to durable storage, and
// byte-level memory accounting split into data, index, and trends pools.
package historycache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/muammer-kilic/zabbix/internal/core"
	"github.com/muammer-kilic/zabbix/internal/diag"
)

// Approximate per-entry memory costs used for accounting. These mirror the
// in-memory representation closely enough for capacity planning; exact heap
// usage is a runtime concern, not ours.
const (
	valueSize      = 32
	indexEntrySize = 96
	trendSlotSize  = 48
)

// Value is one stored history value.
type Value struct {
	Clock time.Time
	Value float64
}

// Row is one value queued for a durable-storage flush.
type Row struct {
	ItemID uint64
	Clock  time.Time
	Value  float64
}

// Flusher receives pending history rows. Implemented by the storage layer.
type Flusher interface {
	SaveValues(ctx context.Context, rows []Row) error
}

// trendSlot aggregates one item's values within one trend interval.
type trendSlot struct {
	count    uint64
	min, max float64
	sum      float64
}

type itemHistory struct {
	values []Value
	trends map[int64]*trendSlot // interval start (unix) -> aggregate
}

// Config configures the cache.
type Config struct {
	// MaxValuesPerItem bounds each item's in-memory history; the oldest
	// value is evicted when the bound is reached.
	MaxValuesPerItem int
	// TrendInterval is the aggregation window for trend slots.
	TrendInterval time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxValuesPerItem: 1024,
		TrendInterval:    time.Hour,
	}
}

// Cache is the in-memory history cache. All methods are safe for
// concurrent use.
type Cache struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.RWMutex
	items      map[uint64]*itemHistory
	pending    []Row
	valueCount uint64
	memData    uint64
	memIndex   uint64
	memTrends  uint64
	stopped    bool
}

// New creates a history cache.
func New(cfg Config, logger *slog.Logger) *Cache {
	if cfg.MaxValuesPerItem <= 0 {
		cfg.MaxValuesPerItem = DefaultConfig().MaxValuesPerItem
	}
	if cfg.TrendInterval <= 0 {
		cfg.TrendInterval = DefaultConfig().TrendInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		cfg:    cfg,
		logger: logger,
		items:  make(map[uint64]*itemHistory),
	}
}

// Add stores one value for an item and queues it for flushing.
func (c *Cache) Add(itemID uint64, clock time.Time, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return core.ErrState(core.CodeCacheStopped, "history cache is stopped")
	}

	item, ok := c.items[itemID]
	if !ok {
		item = &itemHistory{trends: make(map[int64]*trendSlot)}
		c.items[itemID] = item
		c.memIndex += indexEntrySize
	}

	if len(item.values) >= c.cfg.MaxValuesPerItem {
		// Evict the oldest value; accounting stays flat.
		copy(item.values, item.values[1:])
		item.values = item.values[:len(item.values)-1]
		c.memData -= valueSize
		c.valueCount--
	}
	item.values = append(item.values, Value{Clock: clock, Value: value})
	c.memData += valueSize
	c.valueCount++

	c.updateTrend(item, clock, value)

	c.pending = append(c.pending, Row{ItemID: itemID, Clock: clock, Value: value})
	return nil
}

func (c *Cache) updateTrend(item *itemHistory, clock time.Time, value float64) {
	start := clock.Truncate(c.cfg.TrendInterval).Unix()
	slot, ok := item.trends[start]
	if !ok {
		slot = &trendSlot{min: value, max: value}
		item.trends[start] = slot
		c.memTrends += trendSlotSize
	}
	slot.count++
	slot.sum += value
	if value < slot.min {
		slot.min = value
	}
	if value > slot.max {
		slot.max = value
	}
}

// Get returns up to n most recent values for an item, newest last.
func (c *Cache) Get(itemID uint64, n int) []Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[itemID]
	if !ok || n <= 0 {
		return nil
	}
	if n > len(item.values) {
		n = len(item.values)
	}
	out := make([]Value, n)
	copy(out, item.values[len(item.values)-n:])
	return out
}

// ItemCount returns the number of cached items.
func (c *Cache) ItemCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.items))
}

// ValueCount returns the number of cached values across all items.
func (c *Cache) ValueCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valueCount
}

// PendingCount returns the number of rows awaiting flush.
func (c *Cache) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// FlushTo hands the pending rows to the store. On store failure the rows
// are requeued ahead of anything added meanwhile, so nothing is lost.
func (c *Cache) FlushTo(ctx context.Context, store Flusher) error {
	c.mu.Lock()
	rows := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	if err := store.SaveValues(ctx, rows); err != nil {
		c.mu.Lock()
		c.pending = append(rows, c.pending...)
		c.mu.Unlock()
		return core.ErrStorage(core.CodeFlushFailed, "flushing history values").WithCause(err)
	}

	c.logger.Debug("flushed history values", "rows", len(rows))
	return nil
}

// Stop rejects further writes. Pending rows remain available for a final
// flush.
func (c *Cache) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// DiagStats returns a point-in-time-consistent snapshot of the cache's
// diagnostic counters under a single lock acquisition.
func (c *Cache) DiagStats() []diag.NamedStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return []diag.NamedStat{
		{Name: "items", Value: uint64(len(c.items))},
		{Name: "values", Value: c.valueCount},
		{Name: "mem_data", Value: c.memData},
		{Name: "mem_index", Value: c.memIndex},
		{Name: "mem_trends", Value: c.memTrends},
	}
}
