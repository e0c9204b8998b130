package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func fixtureLines() []domain.InventoryLine {
	return []domain.InventoryLine{
		{ID: "a1", ShopID: "A", ModelID: "M1", TypeID: "T1", BatchNo: "B1", Qty: 2, Price: d(50)},
		{ID: "a2", ShopID: "A", ModelID: "M1", TypeID: "T1", BatchNo: "B2", Qty: 3, Price: d(10)},
		{ID: "b1", ShopID: "B", ModelID: "M2", TypeID: "T1", BatchNo: "B1", Qty: 1, Price: d(1000)},
	}
}

func fixtureShops() []domain.Shop {
	return []domain.Shop{
		{ID: "A", ShopName: "Anand Nagar"},
		{ID: "B", ShopName: "Bus Stand"},
		{ID: "C", ShopName: "City Mall"},
	}
}

func TestPerShopTotals(t *testing.T) {
	totals := PerShopTotals(fixtureLines(), fixtureShops())

	assert.Equal(t, 5, totals["A"].TotalQty)
	assert.True(t, totals["A"].TotalValue.Equal(d(130)))
	assert.Equal(t, 1, totals["B"].TotalQty)
	assert.True(t, totals["B"].TotalValue.Equal(d(1000)))

	empty, ok := totals["C"]
	require.True(t, ok, "shops without lines still appear")
	assert.Equal(t, 0, empty.TotalQty)
	assert.True(t, empty.TotalValue.IsZero())

	assert.True(t, TotalValue(fixtureLines()).Equal(d(1130)))
}

func TestPerShopTotalsKeepsUnknownShops(t *testing.T) {
	lines := append(fixtureLines(), domain.InventoryLine{ShopID: "gone", Qty: 4, Price: d(5)})
	totals := PerShopTotals(lines, fixtureShops())
	assert.True(t, totals["gone"].TotalValue.Equal(d(20)))
}

func TestLowStockClassification(t *testing.T) {
	s := domain.Settings{LowStockQty: 3, LowStockValue: d(500)}
	totals := PerShopTotals(fixtureLines(), fixtureShops())

	assert.True(t, IsLowStock(totals["A"], s))
	assert.False(t, IsLowStock(totals["B"], s))

	// the line threshold is independent of the shop value threshold
	lines := fixtureLines()
	assert.True(t, IsLowQty(lines[0], s))
	assert.False(t, IsLowQty(lines[1], s))
	assert.True(t, IsLowQty(lines[2], s))
}

func TestPriceLabel(t *testing.T) {
	assert.Equal(t, "₹80–₹120", PriceLabel([]decimal.Decimal{d(80), d(80), d(120)}))
	assert.Equal(t, "₹80–₹120", PriceLabel([]decimal.Decimal{d(120), d(80)}))
	assert.Equal(t, "₹80", PriceLabel([]decimal.Decimal{d(80), d(80)}))
	assert.Equal(t, "₹99.5", PriceLabel([]decimal.Decimal{decimal.RequireFromString("99.50")}))
	assert.Equal(t, "", PriceLabel(nil))
}

func TestSummaryByShopModelType(t *testing.T) {
	lines := append(fixtureLines(),
		domain.InventoryLine{ShopID: "A", ModelID: "M1", TypeID: "T1", BatchNo: "B3", Qty: 1, Price: d(50)},
		domain.InventoryLine{ShopID: "A", ModelID: "M1", TypeID: "T2", BatchNo: "B1", Qty: 7, Price: d(80)},
	)
	groups := SummaryByShopModelType(lines)
	require.Len(t, groups, 3)

	g := groups[0]
	assert.Equal(t, "A", g.ShopID)
	assert.Equal(t, "T1", g.TypeID)
	assert.Equal(t, 6, g.Qty)
	assert.Equal(t, []string{"B1", "B2", "B3"}, g.Batches)
	assert.Len(t, g.Prices, 2)
	assert.Equal(t, "₹10–₹50", g.PriceLabel())

	assert.Equal(t, "T2", groups[1].TypeID)
	assert.Equal(t, "B", groups[2].ShopID)
}

func TestAggregationIsDeterministic(t *testing.T) {
	lines := fixtureLines()
	reversed := []domain.InventoryLine{lines[2], lines[1], lines[0]}
	assert.Equal(t, SummaryByShopModelType(lines), SummaryByShopModelType(reversed))

	a := Dashboard(lines, fixtureShops(), domain.DefaultSettings())
	b := Dashboard(reversed, fixtureShops(), domain.DefaultSettings())
	assert.True(t, a.TotalValue.Equal(b.TotalValue))
	require.Len(t, b.Shops, len(a.Shops))
	for i := range a.Shops {
		assert.Equal(t, a.Shops[i].ShopID, b.Shops[i].ShopID)
		assert.True(t, a.Shops[i].TotalValue.Equal(b.Shops[i].TotalValue))
	}
}

func TestDashboard(t *testing.T) {
	view := Dashboard(fixtureLines(), fixtureShops(), domain.Settings{LowStockQty: 5, LowStockValue: d(500)})

	assert.Equal(t, 6, view.TotalQty)
	assert.True(t, view.TotalValue.Equal(d(1130)))
	assert.Equal(t, 3, view.ShopCount)
	assert.Equal(t, 2, view.LowShopCount, "A and the empty shop C")
	require.Len(t, view.Shops, 3)
	assert.Equal(t, "Anand Nagar", view.Shops[0].ShopName)
	assert.True(t, view.Shops[0].IsLow)
	assert.False(t, view.Shops[1].IsLow)
}

func TestValueByShop(t *testing.T) {
	lines := append(fixtureLines(), domain.InventoryLine{ShopID: "gone", Qty: 1, Price: d(7)})
	rows := ValueByShop(lines, fixtureShops())
	require.Len(t, rows, 3)
	assert.Equal(t, "Bus Stand", rows[0].ShopName)
	assert.Equal(t, "Anand Nagar", rows[1].ShopName)
	assert.Equal(t, UnknownShop, rows[2].ShopName)
}

func TestRecentActivity(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	lines := []domain.InventoryLine{
		{ID: "old", ShopID: "A", ModelID: "M1", UpdatedAt: now.AddDate(0, 0, -20)},
		{ID: "new", ShopID: "B", ModelID: "M2", UpdatedAt: now.Add(-time.Hour)},
		{ID: "mid", ShopID: "A", ModelID: "M2", UpdatedAt: now.AddDate(0, 0, -3)},
	}
	names := NameLookup{
		Models: map[string]string{"M1": "Pixel 8a", "M2": "Galaxy S24"},
		Shops:  map[string]string{"A": "Anand Nagar", "B": "Bus Stand"},
	}

	week := RecentActivity(lines, now, Window("7d"), "", names)
	require.Len(t, week, 2)
	assert.Equal(t, "new", week[0].ID)
	assert.Equal(t, "mid", week[1].ID)

	assert.Len(t, RecentActivity(lines, now, Window("30d"), "", names), 3)
	assert.Len(t, RecentActivity(lines, now, Window("bogus"), "pixel", names), 1)
	assert.Len(t, RecentActivity(lines, now, Window("30d"), "ANAND", names), 2)
}

func TestFilterLines(t *testing.T) {
	s := domain.Settings{LowStockQty: 3, LowStockValue: d(500)}
	lines := []domain.InventoryLine{
		{ID: "1", Qty: 1, SearchKey: "google pixel 8a silicone anand nagar"},
		{ID: "2", Qty: 9, SearchKey: "apple iphone 15 flip anand nagar"},
		{ID: "3", Qty: 0, SearchKey: "apple iphone 14 clear bus stand"},
	}

	assert.Len(t, FilterLines(lines, s, TabAll, ""), 3)
	assert.Len(t, FilterLines(lines, s, TabLow, ""), 2)
	assert.Len(t, FilterLines(lines, s, TabHealthy, ""), 1)

	got := FilterLines(lines, s, TabAll, "Apple  anand")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Empty(t, FilterLines(lines, s, TabLow, "flip"))
}

func TestStorageEstimate(t *testing.T) {
	est := StorageEstimate(Counts{Inventory: 1000, Users: 10, Settings: 1})
	// (1000*1900 + 10*1200 + 800) * 1.35
	assert.Equal(t, int64(2582280), est.Bytes)
	assert.InDelta(t, 2.46, est.MB, 0.001)
	assert.InDelta(t, 1021.54, est.RemainingMB, 0.001)
	assert.Equal(t, FreeTierMB, est.FreeTierMB)
	assert.Greater(t, est.PercentUsed, 0.0)
}
