package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

// Names carries the display names that feed the search key.
type Names struct {
	Brand     string
	Model     string
	CoverType string
	Shop      string
}

// Submission is one stock-entry attempt against a resolved key.
type Submission struct {
	Key     Key
	BrandID string
	Price   decimal.Decimal
	// Qty is the starting quantity for a new line and the quantity to add for
	// an existing one.
	Qty   int
	Actor domain.Identity
	Names Names
	Now   time.Time
}

// Reconcile decides create versus merge and returns the line to persist.
// existing is nil when nothing is stored under the key yet. It never
// mutates existing.
func Reconcile(existing *domain.InventoryLine, sub Submission) (domain.InventoryLine, error) {
	if sub.Key.ShopID == "" || sub.Key.ModelID == "" || sub.Key.TypeID == "" || sub.Key.BatchNo == "" || sub.BrandID == "" {
		return domain.InventoryLine{}, domain.Validation("complete all fields")
	}
	if sub.Price.IsNegative() {
		return domain.InventoryLine{}, domain.Validation("price cannot be negative")
	}

	line := domain.InventoryLine{
		ID:      sub.Key.String(),
		ShopID:  sub.Key.ShopID,
		BrandID: sub.BrandID,
		ModelID: sub.Key.ModelID,
		TypeID:  sub.Key.TypeID,
		BatchNo: sub.Key.BatchNo,
		Price:   sub.Price,
	}

	if existing == nil {
		if sub.Qty < 0 {
			return domain.InventoryLine{}, domain.Validation("quantity cannot be negative")
		}
		line.Qty = sub.Qty
		line.OldQty = 0
	} else {
		if sub.Qty <= 0 {
			return domain.InventoryLine{}, domain.Validation("enter quantity to add")
		}
		line.Qty = existing.Qty + sub.Qty
		line.OldQty = existing.Qty
	}

	line.SearchKey = SearchKey(sub.Names)
	line.UpdatedAt = sub.Now.UTC()
	line.UpdatedBy = Stamp(sub.Actor, sub.Names.Shop)
	return line, nil
}

// SearchKey is the lowercase brand, model, cover and shop names joined by
// spaces.
func SearchKey(n Names) string {
	return strings.ToLower(strings.TrimSpace(n.Brand + " " + n.Model + " " + n.CoverType + " " + n.Shop))
}

// Stamp builds the audit record for actor. Admin stamps carry no shop.
func Stamp(actor domain.Identity, shopName string) domain.AuditStamp {
	stamp := domain.AuditStamp{ActorRole: actor.Role, ActorEmail: actor.Email}
	if !actor.IsAdmin() {
		stamp.ShopName = shopName
	}
	return stamp
}
