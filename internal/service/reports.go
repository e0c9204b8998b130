package service

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/codingrush01/murlidhar-mobiles/internal/access"
	"github.com/codingrush01/murlidhar-mobiles/internal/aggregate"
	"github.com/codingrush01/murlidhar-mobiles/internal/cache"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

// names holds display names of the reference collections.
type names struct {
	shops  []domain.Shop
	shop   map[string]string
	brand  map[string]string
	model  map[string]string
	cover  map[string]string
	models map[string]domain.PhoneModel
}

func (s *Service) loadNames(ctx context.Context) (names, error) {
	shops, err := listAll[domain.Shop](ctx, s.docs, domain.CollectionShops, store.Query{})
	if err != nil {
		return names{}, err
	}
	brands, err := listAll[domain.CatalogItem](ctx, s.docs, domain.CollectionBrands, store.Query{})
	if err != nil {
		return names{}, err
	}
	covers, err := listAll[domain.CatalogItem](ctx, s.docs, domain.CollectionCoverTypes, store.Query{})
	if err != nil {
		return names{}, err
	}
	models, err := listAll[domain.PhoneModel](ctx, s.docs, domain.CollectionModels, store.Query{})
	if err != nil {
		return names{}, err
	}

	n := names{
		shops:  shops,
		shop:   make(map[string]string, len(shops)),
		brand:  make(map[string]string, len(brands)),
		model:  make(map[string]string, len(models)),
		cover:  make(map[string]string, len(covers)),
		models: make(map[string]domain.PhoneModel, len(models)),
	}
	for _, sh := range shops {
		n.shop[sh.ID] = sh.ShopName
	}
	for _, b := range brands {
		n.brand[b.ID] = b.Name
	}
	for _, c := range covers {
		n.cover[c.ID] = c.Name
	}
	for _, m := range models {
		n.model[m.ID] = m.Name
		n.models[m.ID] = m
	}
	return n, nil
}

func (n names) scopeShops(shopID string) []domain.Shop {
	if shopID == "" {
		return n.shops
	}
	return slices.DeleteFunc(slices.Clone(n.shops), func(sh domain.Shop) bool { return sh.ID != shopID })
}

// snapshot returns the lines of shopID, or every line for an empty shopID,
// plus a digest of their content. Without a live view the digest is empty.
func (s *Service) snapshot(ctx context.Context, shopID string) ([]domain.InventoryLine, string, error) {
	if s.view != nil && s.view.Started() {
		lines := s.view.Lines()
		if shopID != "" {
			lines = slices.DeleteFunc(lines, func(l domain.InventoryLine) bool { return l.ShopID != shopID })
		}
		return lines, linesDigest(lines), nil
	}

	q := store.Query{}
	if shopID != "" {
		q.Filters = []store.Filter{store.Where("shop_id", store.OpEqual, shopID)}
	}
	lines, err := listAll[domain.InventoryLine](ctx, s.docs, domain.CollectionInventory, q)
	return lines, "", err
}

// linesDigest identifies a snapshot by content so that processes sharing one
// cache agree on it regardless of their local view revisions.
func linesDigest(lines []domain.InventoryLine) string {
	sorted := slices.Clone(lines)
	slices.SortFunc(sorted, func(a, b domain.InventoryLine) int { return strings.Compare(a.ID, b.ID) })

	parts := make([]string, 0, len(sorted))
	for _, l := range sorted {
		parts = append(parts, strings.Join([]string{
			l.ID, l.ShopID, l.ModelID, l.TypeID, l.Price.String(), strconv.Itoa(l.Qty),
			l.SearchKey, l.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}, "\x1f"))
	}
	return cache.Key("lines", parts...)
}

// cached serves compute from the dashboard cache when the read comes from a
// live view snapshot.
func cached[T any](ctx context.Context, s *Service, digest string, namespace string, parts []string, compute func() (T, error)) (T, error) {
	if digest == "" {
		return compute()
	}
	current := s.settings.Current()
	parts = append(parts, digest, strconv.Itoa(current.LowStockQty), current.LowStockValue.String())
	return cache.Load(ctx, s.cache, cache.Key(namespace, parts...), s.cacheTTL, compute)
}

func (s *Service) Dashboard(ctx context.Context) (aggregate.DashboardView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return aggregate.DashboardView{}, err
	}
	shopID, _ := scopeShop(actor, "")
	lines, digest, err := s.snapshot(ctx, shopID)
	if err != nil {
		return aggregate.DashboardView{}, err
	}
	return cached(ctx, s, digest, "dashboard", []string{shopID}, func() (aggregate.DashboardView, error) {
		n, err := s.loadNames(ctx)
		if err != nil {
			return aggregate.DashboardView{}, err
		}
		return aggregate.Dashboard(lines, n.scopeShops(shopID), s.settings.Current()), nil
	})
}

func (s *Service) ValueByShop(ctx context.Context) ([]aggregate.ValueRow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	shopID, _ := scopeShop(actor, "")
	lines, digest, err := s.snapshot(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, digest, "value-by-shop", []string{shopID}, func() ([]aggregate.ValueRow, error) {
		n, err := s.loadNames(ctx)
		if err != nil {
			return nil, err
		}
		return aggregate.ValueByShop(lines, n.shops), nil
	})
}

// Summary groups stock by shop, model and cover type.
func (s *Service) Summary(ctx context.Context, requestedShop string) ([]domain.SummaryRow, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	shopID, err := scopeShop(actor, requestedShop)
	if err != nil {
		return nil, err
	}
	lines, digest, err := s.snapshot(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, digest, "summary", []string{shopID}, func() ([]domain.SummaryRow, error) {
		n, err := s.loadNames(ctx)
		if err != nil {
			return nil, err
		}
		current := s.settings.Current()
		groups := aggregate.SummaryByShopModelType(lines)
		rows := make([]domain.SummaryRow, 0, len(groups))
		for _, g := range groups {
			rows = append(rows, domain.SummaryRow{
				ShopID:     g.ShopID,
				ShopName:   defaultString(n.shop[g.ShopID], aggregate.UnknownShop),
				BrandName:  n.brand[n.models[g.ModelID].BrandID],
				ModelID:    g.ModelID,
				ModelName:  n.model[g.ModelID],
				TypeID:     g.TypeID,
				TypeName:   n.cover[g.TypeID],
				Qty:        g.Qty,
				PriceLabel: g.PriceLabel(),
				Batches:    g.Batches,
				IsLow:      g.Qty < current.LowStockQty,
			})
		}
		slices.SortStableFunc(rows, func(a, b domain.SummaryRow) int {
			return strings.Compare(strings.ToLower(a.ShopName), strings.ToLower(b.ShopName))
		})
		return rows, nil
	})
}

// RecentActivity lists lines touched within rangeKey (7d, 30d or a year).
func (s *Service) RecentActivity(ctx context.Context, rangeKey string, q string) ([]domain.ActivityEntry, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	shopID, _ := scopeShop(actor, "")
	lines, _, err := s.snapshot(ctx, shopID)
	if err != nil {
		return nil, err
	}
	n, err := s.loadNames(ctx)
	if err != nil {
		return nil, err
	}

	recent := aggregate.RecentActivity(lines, s.now(), aggregate.Window(rangeKey), q, aggregate.NameLookup{Models: n.model, Shops: n.shop})
	out := make([]domain.ActivityEntry, 0, len(recent))
	for _, l := range recent {
		out = append(out, domain.ActivityEntry{
			Line:      l,
			BrandName: n.brand[l.BrandID],
			ModelName: n.model[l.ModelID],
			TypeName:  n.cover[l.TypeID],
			ShopName:  defaultString(n.shop[l.ShopID], aggregate.UnknownShop),
			UpdatedBy: l.UpdatedBy.String(),
		})
	}
	return out, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Settings{}, err
	}
	return s.settings.Current(), nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := requireCapability(ctx, access.CapManageInventorySettings); err != nil {
		return domain.Settings{}, err
	}
	next := s.settings.Current()
	if req.LowStockQty != nil {
		next.LowStockQty = *req.LowStockQty
	}
	if req.LowStockValue != nil {
		next.LowStockValue = *req.LowStockValue
	}
	if err := s.settings.Update(ctx, next); err != nil {
		return domain.Settings{}, err
	}
	s.logAudit(ctx, "", "settings_update", "settings", domain.SettingsGlobalID,
		"low_stock_qty="+strconv.Itoa(next.LowStockQty)+",low_stock_value="+next.LowStockValue.String())
	return next, nil
}

// StorageEstimate approximates the footprint of the stored collections.
// Orders are not kept by this system and count as zero.
func (s *Service) StorageEstimate(ctx context.Context) (aggregate.Storage, error) {
	if _, err := requireCapability(ctx, access.CapManageUsers); err != nil {
		return aggregate.Storage{}, err
	}
	var counts aggregate.Counts
	for _, c := range []struct {
		collection string
		dst        *int
	}{
		{domain.CollectionInventory, &counts.Inventory},
		{domain.CollectionUsers, &counts.Users},
		{domain.CollectionSettings, &counts.Settings},
	} {
		n, err := s.docs.Count(ctx, c.collection)
		if err != nil {
			return aggregate.Storage{}, domain.StoreFailure(err)
		}
		*c.dst = n
	}
	return aggregate.StorageEstimate(counts), nil
}
