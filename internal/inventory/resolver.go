package inventory

import (
	"slices"
	"strings"
	"time"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/xid"
)

// Stager is the staging half of store.Batch.
type Stager interface {
	Set(collection string, id string, fields store.Fields, merge bool)
}

// Normalize is the matching form of a catalog name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindModel returns the model of brandID whose normalized name equals the
// normalized nameText.
func FindModel(models []domain.PhoneModel, brandID string, nameText string) (domain.PhoneModel, bool) {
	normalized := Normalize(nameText)
	for _, m := range models {
		if m.BrandID == brandID && m.NormalizedName == normalized {
			return m, true
		}
	}
	return domain.PhoneModel{}, false
}

// ResolveOrCreateModel finds the model for (brandID, nameText) in the
// snapshot, or stages a new one in batch. The new model is only persisted if
// the caller commits the batch together with the inventory write.
func ResolveOrCreateModel(models []domain.PhoneModel, brandID string, nameText string, batch Stager, now time.Time) (domain.PhoneModel, bool, error) {
	name := strings.TrimSpace(nameText)
	if brandID == "" || name == "" {
		return domain.PhoneModel{}, false, domain.Validation("complete all fields")
	}
	if m, ok := FindModel(models, brandID, name); ok {
		return m, false, nil
	}

	model := domain.PhoneModel{
		ID:             xid.New(""),
		Name:           name,
		NormalizedName: Normalize(name),
		BrandID:        brandID,
		CreatedAt:      now.UTC(),
	}
	fields, err := store.Encode(model)
	if err != nil {
		return domain.PhoneModel{}, false, err
	}
	batch.Set(domain.CollectionModels, model.ID, fields, false)
	return model, true, nil
}

// ResolveOrCreateCatalogItem is the brand / cover-type counterpart of
// ResolveOrCreateModel.
func ResolveOrCreateCatalogItem(items []domain.CatalogItem, collection string, nameText string, batch Stager, now time.Time) (domain.CatalogItem, bool, error) {
	name := strings.TrimSpace(nameText)
	if name == "" {
		return domain.CatalogItem{}, false, domain.Validation("complete all fields")
	}
	normalized := Normalize(name)
	for _, item := range items {
		if item.NormalizedName == normalized {
			return item, false, nil
		}
	}

	item := domain.CatalogItem{
		ID:             xid.New(""),
		Name:           name,
		NormalizedName: normalized,
		CreatedAt:      now.UTC(),
	}
	fields, err := store.Encode(item)
	if err != nil {
		return domain.CatalogItem{}, false, err
	}
	batch.Set(collection, item.ID, fields, false)
	return item, true, nil
}

// Suggestions lists the brand's models whose normalized name contains text.
func Suggestions(models []domain.PhoneModel, brandID string, text string) []domain.PhoneModel {
	needle := Normalize(text)
	out := make([]domain.PhoneModel, 0, 8)
	for _, m := range models {
		if m.BrandID != brandID {
			continue
		}
		if needle == "" || strings.Contains(m.NormalizedName, needle) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b domain.PhoneModel) int {
		return strings.Compare(a.NormalizedName, b.NormalizedName)
	})
	return out
}
