// Package aggregate derives totals, low-stock flags and summaries from an
// inventory snapshot. Every function is pure.
package aggregate

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

type ShopTotals struct {
	TotalQty   int             `json:"totalQty"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// TotalValue is the sum of qty * price over lines.
func TotalValue(lines []domain.InventoryLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Value())
	}
	return total
}

// PerShopTotals groups lines by shop. Every shop in shops appears even
// without lines.
func PerShopTotals(lines []domain.InventoryLine, shops []domain.Shop) map[string]ShopTotals {
	out := make(map[string]ShopTotals, len(shops))
	for _, s := range shops {
		out[s.ID] = ShopTotals{TotalValue: decimal.Zero}
	}
	for _, l := range lines {
		t, ok := out[l.ShopID]
		if !ok {
			t.TotalValue = decimal.Zero
		}
		t.TotalQty += l.Qty
		t.TotalValue = t.TotalValue.Add(l.Value())
		out[l.ShopID] = t
	}
	return out
}

// IsLowStock is the shop-level value threshold.
func IsLowStock(t ShopTotals, s domain.Settings) bool {
	return t.TotalValue.LessThan(s.LowStockValue)
}

// IsLowQty is the line-level quantity threshold.
func IsLowQty(l domain.InventoryLine, s domain.Settings) bool {
	return l.Qty < s.LowStockQty
}

// Group accumulates the lines of one shop / model / cover type.
type Group struct {
	ShopID  string
	ModelID string
	TypeID  string
	Qty     int
	Prices  []decimal.Decimal
	Batches []string
}

func (g Group) PriceLabel() string {
	return PriceLabel(g.Prices)
}

// SummaryByShopModelType groups lines by shop, then model, then cover type.
// Prices and batches are deduplicated; groups come back sorted by their ids.
func SummaryByShopModelType(lines []domain.InventoryLine) []Group {
	type groupKey struct{ shop, model, typ string }
	index := make(map[groupKey]int)
	groups := make([]Group, 0, len(lines))

	for _, l := range lines {
		k := groupKey{l.ShopID, l.ModelID, l.TypeID}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{ShopID: l.ShopID, ModelID: l.ModelID, TypeID: l.TypeID})
		}
		g := &groups[i]
		g.Qty += l.Qty
		if !slices.ContainsFunc(g.Prices, l.Price.Equal) {
			g.Prices = append(g.Prices, l.Price)
		}
		if !slices.Contains(g.Batches, l.BatchNo) {
			g.Batches = append(g.Batches, l.BatchNo)
		}
	}

	for i := range groups {
		slices.SortFunc(groups[i].Prices, func(a, b decimal.Decimal) int { return a.Cmp(b) })
		slices.Sort(groups[i].Batches)
	}
	slices.SortFunc(groups, func(a, b Group) int {
		if c := strings.Compare(a.ShopID, b.ShopID); c != 0 {
			return c
		}
		if c := strings.Compare(a.ModelID, b.ModelID); c != 0 {
			return c
		}
		return strings.Compare(a.TypeID, b.TypeID)
	})
	return groups
}

// PriceLabel renders one distinct price as "₹80" and several as "₹80–₹120".
func PriceLabel(prices []decimal.Decimal) string {
	if len(prices) == 0 {
		return ""
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		lo = decimal.Min(lo, p)
		hi = decimal.Max(hi, p)
	}
	if lo.Equal(hi) {
		return rupees(lo)
	}
	return rupees(lo) + "–" + rupees(hi)
}

// decimal.String already drops trailing zeros.
func rupees(d decimal.Decimal) string {
	return "₹" + d.String()
}
