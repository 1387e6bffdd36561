package historycache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muammer-kilic/zabbix/internal/diag"
	"github.com/muammer-kilic/zabbix/internal/logging"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	return New(cfg, logging.NewNop().Logger)
}

func TestCache_AddAndGet(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	base := time.Unix(1700000000, 0)

	for i := 0; i < 5; i++ {
		if err := c.Add(1001, base.Add(time.Duration(i)*time.Second), float64(i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got := c.Get(1001, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %d", len(got))
	}
	if got[2].Value != 4 {
		t.Fatalf("expected newest value last, got %v", got)
	}
	if c.ItemCount() != 1 || c.ValueCount() != 5 {
		t.Fatalf("expected 1 item / 5 values, got %d / %d", c.ItemCount(), c.ValueCount())
	}
}

func TestCache_EvictionKeepsBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxValuesPerItem = 4
	c := newTestCache(t, cfg)
	base := time.Unix(1700000000, 0)

	for i := 0; i < 10; i++ {
		if err := c.Add(1, base.Add(time.Duration(i)*time.Second), float64(i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if c.ValueCount() != 4 {
		t.Fatalf("expected bounded value count 4, got %d", c.ValueCount())
	}
	got := c.Get(1, 10)
	if len(got) != 4 || got[0].Value != 6 || got[3].Value != 9 {
		t.Fatalf("expected values 6..9, got %v", got)
	}
}

func TestCache_DiagStatsCoversRegistry(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	if err := c.Add(1, time.Unix(1700000000, 0), 1.5); err != nil {
		t.Fatalf("add: %v", err)
	}

	doc := diag.NewDocument()
	if err := diag.AddSectionInfoMask(diag.SectionHistoryCache, diag.All, c.DiagStats(), doc); err != nil {
		t.Fatalf("cache snapshot does not satisfy the registry: %v", err)
	}

	sec, _ := doc.Section(diag.SectionHistoryCache)
	byName := map[string]uint64{}
	for _, f := range sec.Fields {
		byName[f.Name] = f.Value
	}
	if byName["items"] != 1 || byName["values"] != 1 {
		t.Fatalf("unexpected counters: %v", byName)
	}
	if byName["mem_data"] == 0 || byName["mem_index"] == 0 || byName["mem_trends"] == 0 {
		t.Fatalf("expected memory accounting to be non-zero: %v", byName)
	}
}

func TestCache_MemoryAccountingStableUnderEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxValuesPerItem = 2
	c := newTestCache(t, cfg)
	base := time.Unix(1700000000, 0)

	for i := 0; i < 2; i++ {
		if err := c.Add(1, base.Add(time.Duration(i)*time.Second), 1); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	full := statValue(t, c, "mem_data")

	for i := 2; i < 20; i++ {
		if err := c.Add(1, base.Add(time.Duration(i)*time.Second), 1); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if got := statValue(t, c, "mem_data"); got != full {
		t.Fatalf("mem_data grew under eviction: %d -> %d", full, got)
	}
}

type recordingFlusher struct {
	rows []Row
	err  error
}

func (f *recordingFlusher) SaveValues(_ context.Context, rows []Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func TestCache_FlushTo(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	base := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		if err := c.Add(uint64(i+1), base, float64(i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	f := &recordingFlusher{}
	if err := c.FlushTo(context.Background(), f); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(f.rows) != 3 {
		t.Fatalf("expected 3 flushed rows, got %d", len(f.rows))
	}
	if c.PendingCount() != 0 {
		t.Fatalf("expected empty pending queue, got %d", c.PendingCount())
	}

	// Flushing with nothing pending is a no-op.
	if err := c.FlushTo(context.Background(), f); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if len(f.rows) != 3 {
		t.Fatalf("no-op flush wrote rows")
	}
}

func TestCache_FlushFailureRequeues(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	if err := c.Add(1, time.Unix(1700000000, 0), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	f := &recordingFlusher{err: errors.New("disk full")}
	if err := c.FlushTo(context.Background(), f); err == nil {
		t.Fatalf("expected flush error")
	}
	if c.PendingCount() != 1 {
		t.Fatalf("expected rows requeued, pending=%d", c.PendingCount())
	}

	f.err = nil
	if err := c.FlushTo(context.Background(), f); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if len(f.rows) != 1 {
		t.Fatalf("expected requeued row flushed, got %d", len(f.rows))
	}
}

func TestCache_StopRejectsWrites(t *testing.T) {
	c := newTestCache(t, DefaultConfig())
	c.Stop()
	if err := c.Add(1, time.Now(), 1); err == nil {
		t.Fatalf("expected error after Stop")
	}
}

func statValue(t *testing.T, c *Cache, name string) uint64 {
	t.Helper()
	for _, s := range c.DiagStats() {
		if s.Name == name {
			return s.Value
		}
	}
	t.Fatalf("stat %s not found", name)
	return 0
}
