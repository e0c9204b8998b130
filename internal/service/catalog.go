package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/codingrush01/murlidhar-mobiles/internal/access"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/inventory"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/xid"
)

// ListShops returns the shops visible to the actor, ordered by name.
func (s *Service) ListShops(ctx context.Context) ([]domain.Shop, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	shops, err := listAll[domain.Shop](ctx, s.docs, domain.CollectionShops, store.Query{})
	if err != nil {
		return nil, err
	}
	if !access.HasCapability(actor, access.CapViewAllShops) {
		shops = slices.DeleteFunc(shops, func(sh domain.Shop) bool { return sh.ID != actor.ShopID })
	}
	slices.SortFunc(shops, func(a, b domain.Shop) int {
		return strings.Compare(strings.ToLower(a.ShopName), strings.ToLower(b.ShopName))
	})
	return shops, nil
}

func (s *Service) CreateShop(ctx context.Context, req domain.ShopRequest) (domain.Shop, error) {
	if _, err := requireCapability(ctx, access.CapManageShops); err != nil {
		return domain.Shop{}, err
	}
	shop, err := s.validShop(ctx, "", req)
	if err != nil {
		return domain.Shop{}, err
	}
	shop.ID = xid.New("shop")
	shop.CreatedAt = s.now()

	fields, err := store.Encode(shop)
	if err != nil {
		return domain.Shop{}, domain.StoreFailure(err)
	}
	if err := s.docs.Upsert(ctx, domain.CollectionShops, shop.ID, fields, false); err != nil {
		return domain.Shop{}, domain.StoreFailure(err)
	}
	s.logAudit(ctx, shop.ID, "shop_create", "shop", shop.ID, "name="+shop.ShopName)
	return shop, nil
}

func (s *Service) UpdateShop(ctx context.Context, id string, req domain.ShopRequest) (domain.Shop, error) {
	if _, err := requireCapability(ctx, access.CapManageShops); err != nil {
		return domain.Shop{}, err
	}
	var existing domain.Shop
	if err := s.getDoc(ctx, domain.CollectionShops, id, "shop", &existing); err != nil {
		return domain.Shop{}, err
	}
	shop, err := s.validShop(ctx, id, req)
	if err != nil {
		return domain.Shop{}, err
	}
	shop.ID = id
	shop.CreatedAt = existing.CreatedAt

	fields, err := store.Encode(shop)
	if err != nil {
		return domain.Shop{}, domain.StoreFailure(err)
	}
	batch := s.docs.Batch()
	batch.Set(domain.CollectionShops, id, fields, true)
	if shop.ShopName != existing.ShopName {
		if err := s.restageSearchKeys(ctx, batch, "shop_id", id, func(n names) { n.shop[id] = shop.ShopName }); err != nil {
			return domain.Shop{}, err
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return domain.Shop{}, domain.StoreFailure(err)
	}
	s.logAudit(ctx, id, "shop_update", "shop", id, "name="+shop.ShopName)
	return shop, nil
}

func (s *Service) DeleteShop(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CapManageShops); err != nil {
		return err
	}
	if err := s.refuseIfReferenced(ctx, "shop", []reference{
		{domain.CollectionInventory, "shop_id"},
		{domain.CollectionUsers, "shopId"},
	}, id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, domain.CollectionShops, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("shop not found")
		}
		return domain.StoreFailure(err)
	}
	s.logAudit(ctx, id, "shop_delete", "shop", id, "")
	return nil
}

// validShop trims req and runs the best-effort email uniqueness check.
func (s *Service) validShop(ctx context.Context, selfID string, req domain.ShopRequest) (domain.Shop, error) {
	shop := domain.Shop{
		ShopName: strings.TrimSpace(req.ShopName),
		Address:  strings.TrimSpace(req.Address),
		Number:   strings.TrimSpace(req.Number),
		Email:    normalizeEmail(req.Email),
	}
	if shop.ShopName == "" {
		return domain.Shop{}, domain.Validation("shop name is required")
	}
	if shop.Email == "" {
		return shop, nil
	}
	found, err := s.docs.Query(ctx, domain.CollectionShops, store.Query{
		Filters: []store.Filter{store.Where("email", store.OpEqual, shop.Email)},
	})
	if err != nil {
		return domain.Shop{}, domain.StoreFailure(err)
	}
	for _, doc := range found {
		if doc.ID != selfID {
			return domain.Shop{}, domain.Conflict("shop email already used")
		}
	}
	return shop, nil
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.listCatalog(ctx, domain.CollectionBrands)
}

func (s *Service) ListCoverTypes(ctx context.Context) ([]domain.CoverType, error) {
	return s.listCatalog(ctx, domain.CollectionCoverTypes)
}

func (s *Service) CreateBrand(ctx context.Context, req domain.CatalogRequest) (domain.Brand, bool, error) {
	return s.createCatalogItem(ctx, domain.CollectionBrands, req)
}

func (s *Service) CreateCoverType(ctx context.Context, req domain.CatalogRequest) (domain.CoverType, bool, error) {
	return s.createCatalogItem(ctx, domain.CollectionCoverTypes, req)
}

func (s *Service) RenameBrand(ctx context.Context, id string, req domain.CatalogRequest) (domain.Brand, error) {
	return s.renameCatalogItem(ctx, domain.CollectionBrands, id, req)
}

func (s *Service) RenameCoverType(ctx context.Context, id string, req domain.CatalogRequest) (domain.CoverType, error) {
	return s.renameCatalogItem(ctx, domain.CollectionCoverTypes, id, req)
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	return s.deleteCatalogItem(ctx, domain.CollectionBrands, id)
}

func (s *Service) DeleteCoverType(ctx context.Context, id string) error {
	return s.deleteCatalogItem(ctx, domain.CollectionCoverTypes, id)
}

func (s *Service) listCatalog(ctx context.Context, collection string) ([]domain.CatalogItem, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	items, err := listAll[domain.CatalogItem](ctx, s.docs, collection, store.Query{})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b domain.CatalogItem) int {
		return strings.Compare(a.NormalizedName, b.NormalizedName)
	})
	return items, nil
}

// createCatalogItem returns the existing item when the normalized name is
// already taken.
func (s *Service) createCatalogItem(ctx context.Context, collection string, req domain.CatalogRequest) (domain.CatalogItem, bool, error) {
	actor, err := requireCapability(ctx, access.CapWriteInventory)
	if err != nil {
		return domain.CatalogItem{}, false, err
	}
	items, err := listAll[domain.CatalogItem](ctx, s.docs, collection, store.Query{})
	if err != nil {
		return domain.CatalogItem{}, false, err
	}

	batch := s.docs.Batch()
	item, created, err := inventory.ResolveOrCreateCatalogItem(items, collection, req.Name, batch, s.now())
	if err != nil || !created {
		return item, false, err
	}
	if err := batch.Commit(ctx); err != nil {
		return domain.CatalogItem{}, false, domain.StoreFailure(err)
	}
	s.logAudit(ctx, actor.ShopID, "catalog_create", collection, item.ID, "name="+item.Name)
	return item, true, nil
}

func (s *Service) renameCatalogItem(ctx context.Context, collection string, id string, req domain.CatalogRequest) (domain.CatalogItem, error) {
	if _, err := requireCapability(ctx, access.CapManageCatalog); err != nil {
		return domain.CatalogItem{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CatalogItem{}, domain.Validation("name is required")
	}
	var item domain.CatalogItem
	if err := s.getDoc(ctx, collection, id, "catalog item", &item); err != nil {
		return domain.CatalogItem{}, err
	}

	previous := item.Name
	item.Name = name
	item.NormalizedName = inventory.Normalize(name)
	batch := s.docs.Batch()
	batch.Set(collection, id, store.Fields{"name": item.Name, "normalizedName": item.NormalizedName}, true)
	if name != previous {
		field, rename := "brand_id", func(n names) { n.brand[id] = name }
		if collection == domain.CollectionCoverTypes {
			field, rename = "type_id", func(n names) { n.cover[id] = name }
		}
		if err := s.restageSearchKeys(ctx, batch, field, id, rename); err != nil {
			return domain.CatalogItem{}, err
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return domain.CatalogItem{}, domain.StoreFailure(err)
	}
	s.logAudit(ctx, "", "catalog_rename", collection, id, "name="+name)
	return item, nil
}

func (s *Service) deleteCatalogItem(ctx context.Context, collection string, id string) error {
	if _, err := requireCapability(ctx, access.CapManageCatalog); err != nil {
		return err
	}
	if err := s.refuseIfReferenced(ctx, catalogNoun(collection), catalogReferences(collection), id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, collection, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("catalog item not found")
		}
		return domain.StoreFailure(err)
	}
	s.logAudit(ctx, "", "catalog_delete", collection, id, "")
	return nil
}

// ListModels returns the models of brandID sorted by name.
func (s *Service) ListModels(ctx context.Context, brandID string) ([]domain.PhoneModel, error) {
	return s.SuggestModels(ctx, brandID, "")
}

func (s *Service) SuggestModels(ctx context.Context, brandID string, text string) ([]domain.PhoneModel, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(brandID) == "" {
		return nil, domain.Validation("brand is required")
	}
	models, err := s.brandModels(ctx, brandID)
	if err != nil {
		return nil, err
	}
	return inventory.Suggestions(models, brandID, text), nil
}

func (s *Service) DeleteModel(ctx context.Context, id string) error {
	return s.deleteCatalogItem(ctx, domain.CollectionModels, id)
}

func (s *Service) brandModels(ctx context.Context, brandID string) ([]domain.PhoneModel, error) {
	return listAll[domain.PhoneModel](ctx, s.docs, domain.CollectionModels, store.Query{
		Filters: []store.Filter{store.Where("brandId", store.OpEqual, brandID)},
	})
}

// resolveCatalog picks an item by id, or by name staging a new one in batch.
func (s *Service) resolveCatalog(ctx context.Context, collection string, id string, name string, batch inventory.Stager) (domain.CatalogItem, bool, error) {
	if id = strings.TrimSpace(id); id != "" {
		var item domain.CatalogItem
		if err := s.getDoc(ctx, collection, id, "catalog item", &item); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.CatalogItem{}, false, domain.Validation(fmt.Sprintf("unknown %s", catalogNoun(collection)))
			}
			return domain.CatalogItem{}, false, err
		}
		return item, false, nil
	}
	if strings.TrimSpace(name) == "" {
		return domain.CatalogItem{}, false, domain.Validation("complete all fields")
	}
	items, err := listAll[domain.CatalogItem](ctx, s.docs, collection, store.Query{})
	if err != nil {
		return domain.CatalogItem{}, false, err
	}
	return inventory.ResolveOrCreateCatalogItem(items, collection, name, batch, s.now())
}

func catalogNoun(collection string) string {
	switch collection {
	case domain.CollectionBrands:
		return "brand"
	case domain.CollectionCoverTypes:
		return "cover type"
	case domain.CollectionModels:
		return "model"
	default:
		return "catalog item"
	}
}

// reference is a field in collection that holds the id of another document.
type reference struct {
	collection string
	field      string
}

func catalogReferences(collection string) []reference {
	switch collection {
	case domain.CollectionBrands:
		return []reference{{domain.CollectionInventory, "brand_id"}, {domain.CollectionModels, "brandId"}}
	case domain.CollectionCoverTypes:
		return []reference{{domain.CollectionInventory, "type_id"}}
	case domain.CollectionModels:
		return []reference{{domain.CollectionInventory, "model_id"}}
	default:
		return nil
	}
}

// refuseIfReferenced returns a ConflictError while any document in refs still
// points at id.
func (s *Service) refuseIfReferenced(ctx context.Context, noun string, refs []reference, id string) error {
	for _, ref := range refs {
		found, err := s.docs.Query(ctx, ref.collection, store.Query{
			Filters: []store.Filter{store.Where(ref.field, store.OpEqual, id)},
			Limit:   1,
		})
		if err != nil {
			return domain.StoreFailure(err)
		}
		if len(found) > 0 {
			return domain.Conflict(fmt.Sprintf("%s is still used by %s", noun, referenceNoun(ref.collection)))
		}
	}
	return nil
}

func referenceNoun(collection string) string {
	switch collection {
	case domain.CollectionInventory:
		return "inventory"
	case domain.CollectionUsers:
		return "users"
	default:
		return "models"
	}
}

// restageSearchKeys stages a recomputed searchKey for every line whose field
// equals id. rename applies the pending name change to the loaded names.
func (s *Service) restageSearchKeys(ctx context.Context, batch store.Batch, field string, id string, rename func(names)) error {
	lines, err := listAll[domain.InventoryLine](ctx, s.docs, domain.CollectionInventory, store.Query{
		Filters: []store.Filter{store.Where(field, store.OpEqual, id)},
	})
	if err != nil || len(lines) == 0 {
		return err
	}
	n, err := s.loadNames(ctx)
	if err != nil {
		return err
	}
	rename(n)
	for _, l := range lines {
		key := inventory.SearchKey(inventory.Names{
			Brand:     n.brand[l.BrandID],
			Model:     n.model[l.ModelID],
			CoverType: n.cover[l.TypeID],
			Shop:      n.shop[l.ShopID],
		})
		if key != l.SearchKey {
			batch.Set(domain.CollectionInventory, l.ID, store.Fields{"searchKey": key}, true)
		}
	}
	return nil
}
