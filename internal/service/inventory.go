package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codingrush01/murlidhar-mobiles/internal/access"
	"github.com/codingrush01/murlidhar-mobiles/internal/aggregate"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/inventory"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// AddStock records one stock-entry submission. Catalog entries created on the
// way and the inventory line are committed in one batch.
func (s *Service) AddStock(ctx context.Context, req domain.StockEntryRequest) (domain.StockEntryResponse, error) {
	actor, err := requireCapability(ctx, access.CapWriteInventory)
	if err != nil {
		return domain.StockEntryResponse{}, err
	}

	shopID := strings.TrimSpace(req.ShopID)
	if actor.IsShopScoped() {
		if shopID != "" && shopID != actor.ShopID {
			return domain.StockEntryResponse{}, domain.Permission("you cannot add inventory for another shop")
		}
		shopID = actor.ShopID
	}
	if err := access.RequireWriteShop(actor, shopID); err != nil {
		return domain.StockEntryResponse{}, err
	}

	batchNo := strings.TrimSpace(req.BatchNo)
	if shopID == "" || batchNo == "" || strings.TrimSpace(req.ModelName) == "" {
		return domain.StockEntryResponse{}, domain.Validation("complete all fields")
	}

	var shop domain.Shop
	if err := s.getDoc(ctx, domain.CollectionShops, shopID, "shop", &shop); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.StockEntryResponse{}, domain.Validation("unknown shop")
		}
		return domain.StockEntryResponse{}, err
	}

	now := s.now()
	batch := s.docs.Batch()

	brand, _, err := s.resolveCatalog(ctx, domain.CollectionBrands, req.BrandID, req.BrandName, batch)
	if err != nil {
		return domain.StockEntryResponse{}, err
	}
	coverType, _, err := s.resolveCatalog(ctx, domain.CollectionCoverTypes, req.TypeID, req.TypeName, batch)
	if err != nil {
		return domain.StockEntryResponse{}, err
	}
	models, err := s.brandModels(ctx, brand.ID)
	if err != nil {
		return domain.StockEntryResponse{}, err
	}
	model, modelCreated, err := inventory.ResolveOrCreateModel(models, brand.ID, req.ModelName, batch, now)
	if err != nil {
		return domain.StockEntryResponse{}, err
	}

	key, err := inventory.NewKey(shopID, model.ID, coverType.ID, batchNo)
	if err != nil {
		return domain.StockEntryResponse{}, err
	}
	existing, err := s.findLine(ctx, key.String())
	if err != nil {
		return domain.StockEntryResponse{}, err
	}

	line, err := inventory.Reconcile(existing, inventory.Submission{
		Key:     key,
		BrandID: brand.ID,
		Price:   req.Price,
		Qty:     req.Qty,
		Actor:   actor,
		Names: inventory.Names{
			Brand:     brand.Name,
			Model:     model.Name,
			CoverType: coverType.Name,
			Shop:      shop.ShopName,
		},
		Now: now,
	})
	if err != nil {
		return domain.StockEntryResponse{}, err
	}

	fields, err := store.Encode(line)
	if err != nil {
		return domain.StockEntryResponse{}, domain.StoreFailure(err)
	}
	batch.Set(domain.CollectionInventory, line.ID, fields, true)
	if err := batch.Commit(ctx); err != nil {
		return domain.StockEntryResponse{}, domain.StoreFailure(err)
	}

	action := "stock_merge"
	if existing == nil {
		action = "stock_create"
	}
	s.logAudit(ctx, shopID, action, "inventory", line.ID, fmt.Sprintf("qty=%d,old_qty=%d,price=%s", line.Qty, line.OldQty, line.Price))

	return domain.StockEntryResponse{
		Line:         line,
		Created:      existing == nil,
		ModelCreated: modelCreated,
		UpdatedBy:    line.UpdatedBy.String(),
	}, nil
}

type ListParams struct {
	ShopID string
	Tab    string
	Query  string
	Cursor string
	Limit  int
}

// ListInventory pages lines by updatedAt descending. Tab and keyword filters
// are applied while scanning, so a page may require several store reads.
func (s *Service) ListInventory(ctx context.Context, p ListParams) (domain.InventoryListResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.InventoryListResponse{}, err
	}
	shopID, err := scopeShop(actor, p.ShopID)
	if err != nil {
		return domain.InventoryListResponse{}, err
	}
	limit := p.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := store.Query{
		OrderBy:    &store.OrderBy{Field: "updatedAt", Desc: true},
		Limit:      limit,
		StartAfter: strings.TrimSpace(p.Cursor),
	}
	if shopID != "" {
		q.Filters = []store.Filter{store.Where("shop_id", store.OpEqual, shopID)}
	}

	current := s.settings.Current()
	resp := domain.InventoryListResponse{Lines: make([]domain.InventoryLine, 0, limit)}
	for {
		docs, err := s.docs.Query(ctx, domain.CollectionInventory, q)
		if errors.Is(err, store.ErrNotFound) {
			return domain.InventoryListResponse{}, domain.Validation("invalid cursor")
		}
		if err != nil {
			return domain.InventoryListResponse{}, domain.StoreFailure(err)
		}
		lines, err := store.DecodeAll[domain.InventoryLine](docs)
		if err != nil {
			return domain.InventoryListResponse{}, domain.StoreFailure(err)
		}

		exhausted := len(docs) < q.Limit
		for _, line := range lines {
			q.StartAfter = line.ID
			if len(aggregate.FilterLines([]domain.InventoryLine{line}, current, p.Tab, p.Query)) == 0 {
				continue
			}
			resp.Lines = append(resp.Lines, line)
			if len(resp.Lines) == limit {
				break
			}
		}

		if len(resp.Lines) == limit {
			resp.HasMore = !exhausted || q.StartAfter != lines[len(lines)-1].ID
			if resp.HasMore {
				resp.NextCursor = q.StartAfter
			}
			return resp, nil
		}
		if exhausted {
			return resp, nil
		}
	}
}

// UpdateLine sets absolute price and/or qty.
func (s *Service) UpdateLine(ctx context.Context, id string, req domain.LineUpdateRequest) (domain.InventoryLine, error) {
	return s.mutateLine(ctx, id, "inventory_edit", func(line domain.InventoryLine, actor domain.Identity, shopName string) (domain.InventoryLine, error) {
		return inventory.Edit(line, req.Price, req.Qty, actor, shopName, s.now())
	})
}

// AdjustLine moves qty by +1 or -1.
func (s *Service) AdjustLine(ctx context.Context, id string, by int) (domain.InventoryLine, error) {
	return s.mutateLine(ctx, id, "inventory_adjust", func(line domain.InventoryLine, actor domain.Identity, shopName string) (domain.InventoryLine, error) {
		return inventory.AdjustQty(line, by, actor, shopName, s.now())
	})
}

// RestockLine adds stock to an existing batch at a new price.
func (s *Service) RestockLine(ctx context.Context, id string, req domain.RestockRequest) (domain.InventoryLine, error) {
	return s.mutateLine(ctx, id, "inventory_restock", func(line domain.InventoryLine, actor domain.Identity, shopName string) (domain.InventoryLine, error) {
		return inventory.Restock(line, req.Price, req.AddQty, actor, shopName, s.now())
	})
}

type lineMutation func(line domain.InventoryLine, actor domain.Identity, shopName string) (domain.InventoryLine, error)

// mutateLine runs one single-document change. With a live view the change is
// shown optimistically and rolled back if the write fails.
func (s *Service) mutateLine(ctx context.Context, id string, action string, mutate lineMutation) (domain.InventoryLine, error) {
	actor, err := requireCapability(ctx, access.CapWriteInventory)
	if err != nil {
		return domain.InventoryLine{}, err
	}
	existing, err := s.findLine(ctx, id)
	if err != nil {
		return domain.InventoryLine{}, err
	}
	if existing == nil {
		return domain.InventoryLine{}, domain.NotFound("inventory line not found")
	}
	if err := access.RequireWriteShop(actor, existing.ShopID); err != nil {
		return domain.InventoryLine{}, err
	}

	next, err := mutate(*existing, actor, s.shopName(ctx, existing.ShopID))
	if err != nil {
		return domain.InventoryLine{}, err
	}

	persist := func(ctx context.Context) error {
		return s.docs.Upsert(ctx, domain.CollectionInventory, id, inventory.MutationFields(next), true)
	}
	if s.view != nil && s.view.Started() {
		err = s.view.Write(ctx, next, persist)
	} else {
		err = domain.StoreFailure(persist(ctx))
	}
	if err != nil {
		return domain.InventoryLine{}, err
	}

	s.logAudit(ctx, next.ShopID, action, "inventory", id, fmt.Sprintf("qty=%d,old_qty=%d,price=%s", next.Qty, next.OldQty, next.Price))
	return next, nil
}

func (s *Service) DeleteLine(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CapDeleteInventory); err != nil {
		return err
	}
	existing, err := s.findLine(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NotFound("inventory line not found")
	}
	if err := s.docs.Delete(ctx, domain.CollectionInventory, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("inventory line not found")
		}
		return domain.StoreFailure(err)
	}
	s.logAudit(ctx, existing.ShopID, "inventory_delete", "inventory", id, fmt.Sprintf("batch=%s,qty=%d", existing.BatchNo, existing.Qty))
	return nil
}

// findLine returns nil without error when nothing is stored under id. A
// stored line whose fields no longer rederive id is a store failure.
func (s *Service) findLine(ctx context.Context, id string) (*domain.InventoryLine, error) {
	doc, err := s.docs.Get(ctx, domain.CollectionInventory, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	var line domain.InventoryLine
	if err := store.Decode(doc, &line); err != nil {
		return nil, domain.StoreFailure(err)
	}
	key, err := inventory.KeyOf(line)
	if err != nil || key.String() != id {
		return nil, domain.StoreFailure(fmt.Errorf("inventory line %q does not match its shop, model, type and batch", id))
	}
	return &line, nil
}

func (s *Service) shopName(ctx context.Context, shopID string) string {
	var shop domain.Shop
	if err := s.getDoc(ctx, domain.CollectionShops, shopID, "shop", &shop); err != nil {
		return ""
	}
	return shop.ShopName
}
