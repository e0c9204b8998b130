package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/liveview"
	"github.com/codingrush01/murlidhar-mobiles/internal/settings"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/store/memory"
)

// sharedCache stands in for redis shared by several processes.
type sharedCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newSharedCache() *sharedCache {
	return &sharedCache{items: make(map[string][]byte)}
}

func (c *sharedCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *sharedCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.sets++
	c.mu.Unlock()
	return nil
}

func (c *sharedCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

// instance is one server process: its own live view over the shared store.
func newInstance(t *testing.T, docs *memory.Store, c *sharedCache) (*Service, context.Context, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := settings.New(docs, domain.DefaultSettings(), nil)
	_, err := cfg.Load(ctx)
	require.NoError(t, err)

	view := liveview.New(docs, nil)
	stop, err := view.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(stop)

	svc := New(docs, cfg, Options{View: view, Cache: c, CacheTTL: time.Minute, Now: stepClock()})
	admin, err := svc.ResolveIdentity(ctx, adminEmail)
	require.NoError(t, err)
	owner, err := svc.ResolveIdentity(ctx, ownerEmail)
	require.NoError(t, err)
	return svc, WithActor(ctx, admin), WithActor(ctx, owner)
}

func TestDashboardCacheSharedAcrossInstances(t *testing.T) {
	t.Setenv("SEED_ADMIN_EMAIL", adminEmail)
	docs := memory.NewSeeded(nil, nil)
	shared := newSharedCache()
	a, adminA, ownerA := newInstance(t, docs, shared)
	b, adminB, _ := newInstance(t, docs, shared)

	created, err := a.AddStock(ownerA, pixelEntry("B1", 100, 10))
	require.NoError(t, err)
	_, err = a.AdjustLine(ownerA, created.Line.ID, 1)
	require.NoError(t, err)

	dashA, err := a.Dashboard(adminA)
	require.NoError(t, err)
	assert.Equal(t, 11, dashA.TotalQty)
	sets := shared.setCount()

	dashB, err := b.Dashboard(adminB)
	require.NoError(t, err)
	assert.Equal(t, 11, dashB.TotalQty)
	assert.Equal(t, sets, shared.setCount(), "identical snapshots share one cache entry")

	require.NoError(t, docs.Upsert(context.Background(), domain.CollectionInventory, created.Line.ID, store.Fields{"qty": 500}, true))

	dashB, err = b.Dashboard(adminB)
	require.NoError(t, err)
	assert.Equal(t, 500, dashB.TotalQty)
	dashA, err = a.Dashboard(adminA)
	require.NoError(t, err)
	assert.Equal(t, 500, dashA.TotalQty)
}

func TestRenamesKeepSearchKeysInSync(t *testing.T) {
	f := newFixture(t, false)
	created, err := f.svc.AddStock(f.owner, pixelEntry("B1", 100, 3))
	require.NoError(t, err)

	_, err = f.svc.UpdateShop(f.admin, memory.SeedShopMain, domain.ShopRequest{ShopName: "Zephyr Outlet", Email: ownerEmail})
	require.NoError(t, err)
	assert.Equal(t, "google pixel 8a silicone zephyr outlet", storedLine(t, f, created.Line.ID).SearchKey)

	found, err := f.svc.ListInventory(f.owner, ListParams{Query: "zephyr"})
	require.NoError(t, err)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, created.Line.ID, found.Lines[0].ID)

	_, err = f.svc.RenameBrand(f.admin, memory.SeedBrandGoogle, domain.CatalogRequest{Name: "Alphabet"})
	require.NoError(t, err)
	_, err = f.svc.RenameCoverType(f.admin, memory.SeedTypeSilicone, domain.CatalogRequest{Name: "Soft Gel"})
	require.NoError(t, err)

	line := storedLine(t, f, created.Line.ID)
	assert.Equal(t, "alphabet pixel 8a soft gel zephyr outlet", line.SearchKey)
	assert.Equal(t, 3, line.Qty, "rename touches only the search key")

	stale, err := f.svc.ListInventory(f.owner, ListParams{Query: "google"})
	require.NoError(t, err)
	assert.Empty(t, stale.Lines)
}

func TestDeletesRefusedWhileReferenced(t *testing.T) {
	f := newFixture(t, false)

	shop, err := f.svc.CreateShop(f.admin, domain.ShopRequest{ShopName: "Airport"})
	require.NoError(t, err)
	entry := pixelEntry("A1", 100, 2)
	entry.ShopID = shop.ID
	created, err := f.svc.AddStock(f.admin, entry)
	require.NoError(t, err)
	modelID := created.Line.ModelID

	assert.ErrorIs(t, f.svc.DeleteShop(f.admin, shop.ID), domain.ErrConflict)
	assert.ErrorIs(t, f.svc.DeleteShop(f.admin, memory.SeedShopMain), domain.ErrConflict, "users still belong to the shop")
	assert.ErrorIs(t, f.svc.DeleteBrand(f.admin, memory.SeedBrandGoogle), domain.ErrConflict)
	assert.ErrorIs(t, f.svc.DeleteCoverType(f.admin, memory.SeedTypeSilicone), domain.ErrConflict)
	assert.ErrorIs(t, f.svc.DeleteModel(f.admin, modelID), domain.ErrConflict)

	require.NoError(t, f.svc.DeleteLine(f.admin, created.Line.ID))

	assert.ErrorIs(t, f.svc.DeleteBrand(f.admin, memory.SeedBrandGoogle), domain.ErrConflict, "the brand still has models")
	require.NoError(t, f.svc.DeleteModel(f.admin, modelID))
	require.NoError(t, f.svc.DeleteBrand(f.admin, memory.SeedBrandGoogle))
	require.NoError(t, f.svc.DeleteCoverType(f.admin, memory.SeedTypeSilicone))
	require.NoError(t, f.svc.DeleteShop(f.admin, shop.ID))
}

func TestMutationRejectsLineThatNoLongerMatchesItsKey(t *testing.T) {
	f := newFixture(t, false)
	created, err := f.svc.AddStock(f.owner, pixelEntry("B1", 100, 3))
	require.NoError(t, err)

	require.NoError(t, f.docs.Upsert(context.Background(), domain.CollectionInventory, created.Line.ID, store.Fields{"batch_no": "B9"}, true))

	_, err = f.svc.AdjustLine(f.owner, created.Line.ID, 1)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Equal(t, 3, storedLine(t, f, created.Line.ID).Qty)
}
