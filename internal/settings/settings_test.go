package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/store/memory"
)

func TestLoadFallsBackWhenMissing(t *testing.T) {
	s := New(memory.New(nil), domain.DefaultSettings(), nil)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, got.LowStockQty)
	assert.True(t, got.LowStockValue.Equal(decimal.NewFromInt(1000)))
}

func TestUpdateValidatesAndNotifies(t *testing.T) {
	ctx := context.Background()
	docs := memory.New(nil)
	s := New(docs, domain.DefaultSettings(), nil)

	var seen []domain.Settings
	unsubscribe := s.Subscribe(func(v domain.Settings) { seen = append(seen, v) })

	err := s.Update(ctx, domain.Settings{LowStockQty: -1, LowStockValue: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	next := domain.Settings{LowStockQty: 2, LowStockValue: decimal.NewFromInt(500)}
	require.NoError(t, s.Update(ctx, next))
	assert.Equal(t, 2, s.Current().LowStockQty)
	require.Len(t, seen, 1)

	doc, err := docs.Get(ctx, domain.CollectionSettings, domain.SettingsGlobalID)
	require.NoError(t, err)
	var stored domain.Settings
	require.NoError(t, store.Decode(doc, &stored))
	assert.True(t, stored.LowStockValue.Equal(decimal.NewFromInt(500)))

	unsubscribe()
	require.NoError(t, s.Update(ctx, domain.Settings{LowStockQty: 9, LowStockValue: decimal.NewFromInt(500)}))
	assert.Len(t, seen, 1)
}

func TestWatchPicksUpExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	docs := memory.New(nil)
	s := New(docs, domain.DefaultSettings(), nil)
	stop := s.Watch(ctx)
	defer stop()

	var (
		mu   sync.Mutex
		last domain.Settings
	)
	s.Subscribe(func(v domain.Settings) {
		mu.Lock()
		last = v
		mu.Unlock()
	})

	fields := store.MustEncode(domain.Settings{LowStockQty: 12, LowStockValue: decimal.NewFromInt(2500)})
	require.NoError(t, docs.Upsert(ctx, domain.CollectionSettings, domain.SettingsGlobalID, fields, false))

	assert.Equal(t, 12, s.Current().LowStockQty)
	mu.Lock()
	assert.Equal(t, 12, last.LowStockQty)
	mu.Unlock()

	require.NoError(t, docs.Delete(ctx, domain.CollectionSettings, domain.SettingsGlobalID))
	assert.Equal(t, 5, s.Current().LowStockQty)
}
