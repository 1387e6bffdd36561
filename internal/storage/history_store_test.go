package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muammer-kilic/zabbix/internal/historycache"
	"github.com/muammer-kilic/zabbix/internal/logging"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestHistoryStore_SaveValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 500)

	rows := []historycache.Row{
		{ItemID: 1, Clock: base, Value: 1.5},
		{ItemID: 1, Clock: base.Add(time.Second), Value: 2.5},
		{ItemID: 2, Clock: base, Value: 10},
	}
	require.NoError(t, store.SaveValues(ctx, rows))

	total, err := store.ValueCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	perItem, err := store.ItemValueCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), perItem)
}

func TestHistoryStore_SaveValuesEmptyBatch(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveValues(context.Background(), nil))

	total, err := store.ValueCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestHistoryStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewHistoryStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.SaveValues(ctx, []historycache.Row{
		{ItemID: 7, Clock: time.Unix(1700000000, 0), Value: 3},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewHistoryStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	total, err := reopened.ValueCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestHistoryStore_FlushFromCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cache := historycache.New(historycache.DefaultConfig(), logging.NewNop().Logger)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Add(42, base.Add(time.Duration(i)*time.Second), float64(i)))
	}

	require.NoError(t, cache.FlushTo(ctx, store))
	assert.Zero(t, cache.PendingCount())

	count, err := store.ItemValueCount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}
