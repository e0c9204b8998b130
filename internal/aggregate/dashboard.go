package aggregate

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

const UnknownShop = "Unknown"

type ShopStat struct {
	ShopID     string          `json:"shopId"`
	ShopName   string          `json:"shopName"`
	TotalQty   int             `json:"totalQty"`
	TotalValue decimal.Decimal `json:"totalValue"`
	IsLow      bool            `json:"isLow"`
}

type DashboardView struct {
	TotalQty      int             `json:"totalQty"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	ShopCount     int             `json:"shopCount"`
	LowShopCount  int             `json:"lowShopCount"`
	Shops         []ShopStat      `json:"shops"`
	LowStockValue decimal.Decimal `json:"lowStockValue"`
}

// Dashboard computes the grand totals and the per-shop stats of known shops,
// ordered by shop name.
func Dashboard(lines []domain.InventoryLine, shops []domain.Shop, s domain.Settings) DashboardView {
	totals := PerShopTotals(lines, shops)
	view := DashboardView{
		TotalValue:    decimal.Zero,
		ShopCount:     len(shops),
		Shops:         make([]ShopStat, 0, len(shops)),
		LowStockValue: s.LowStockValue,
	}
	for _, l := range lines {
		view.TotalQty += l.Qty
	}
	view.TotalValue = TotalValue(lines)

	for _, shop := range shops {
		t := totals[shop.ID]
		stat := ShopStat{
			ShopID:     shop.ID,
			ShopName:   shop.ShopName,
			TotalQty:   t.TotalQty,
			TotalValue: t.TotalValue,
			IsLow:      IsLowStock(t, s),
		}
		if stat.IsLow {
			view.LowShopCount++
		}
		view.Shops = append(view.Shops, stat)
	}
	slices.SortFunc(view.Shops, func(a, b ShopStat) int {
		if c := strings.Compare(strings.ToLower(a.ShopName), strings.ToLower(b.ShopName)); c != 0 {
			return c
		}
		return strings.Compare(a.ShopID, b.ShopID)
	})
	return view
}

type ValueRow struct {
	ShopName string          `json:"shopName"`
	Value    decimal.Decimal `json:"value"`
}

// ValueByShop is the chart series: one row per shop that has lines, highest
// value first. Lines of unknown shops are grouped under UnknownShop.
func ValueByShop(lines []domain.InventoryLine, shops []domain.Shop) []ValueRow {
	names := make(map[string]string, len(shops))
	for _, s := range shops {
		names[s.ID] = s.ShopName
	}
	byName := make(map[string]decimal.Decimal)
	for _, l := range lines {
		name, ok := names[l.ShopID]
		if !ok || name == "" {
			name = UnknownShop
		}
		v, ok := byName[name]
		if !ok {
			v = decimal.Zero
		}
		byName[name] = v.Add(l.Value())
	}

	rows := make([]ValueRow, 0, len(byName))
	for name, v := range byName {
		rows = append(rows, ValueRow{ShopName: name, Value: v})
	}
	slices.SortFunc(rows, func(a, b ValueRow) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.ShopName, b.ShopName)
	})
	return rows
}

// Window parses the activity range selector. Anything other than 7d or 30d
// is a year.
func Window(r string) time.Duration {
	switch r {
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

// NameLookup resolves display names for activity matching.
type NameLookup struct {
	Models map[string]string
	Shops  map[string]string
}

// RecentActivity keeps lines updated within window before now, optionally
// matching q against the model or shop name, newest first.
func RecentActivity(lines []domain.InventoryLine, now time.Time, window time.Duration, q string, names NameLookup) []domain.InventoryLine {
	since := now.Add(-window)
	needle := strings.ToLower(strings.TrimSpace(q))

	out := make([]domain.InventoryLine, 0, len(lines))
	for _, l := range lines {
		if l.UpdatedAt.Before(since) {
			continue
		}
		if needle != "" {
			model := strings.ToLower(names.Models[l.ModelID])
			shop := strings.ToLower(names.Shops[l.ShopID])
			if !strings.Contains(model, needle) && !strings.Contains(shop, needle) {
				continue
			}
		}
		out = append(out, l)
	}
	sortNewestFirst(out)
	return out
}

const (
	TabAll     = "all"
	TabLow     = "low"
	TabHealthy = "healthy"
)

// FilterLines applies the inventory list tab and keyword search. Every
// whitespace-separated keyword must occur in the search key.
func FilterLines(lines []domain.InventoryLine, s domain.Settings, tab string, search string) []domain.InventoryLine {
	keywords := strings.Fields(strings.ToLower(search))
	out := make([]domain.InventoryLine, 0, len(lines))
	for _, l := range lines {
		switch tab {
		case TabLow:
			if !IsLowQty(l, s) {
				continue
			}
		case TabHealthy:
			if IsLowQty(l, s) {
				continue
			}
		}
		if !containsAll(l.SearchKey, keywords) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func containsAll(haystack string, keywords []string) bool {
	haystack = strings.ToLower(haystack)
	for _, k := range keywords {
		if !strings.Contains(haystack, k) {
			return false
		}
	}
	return true
}

func sortNewestFirst(lines []domain.InventoryLine) {
	slices.SortStableFunc(lines, func(a, b domain.InventoryLine) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Average stored document sizes in bytes.
const (
	avgInventoryBytes = 1900
	avgUserBytes      = 1200
	avgOrderBytes     = 2400
	avgSettingsBytes  = 800
	indexOverhead     = 1.35
	FreeTierMB        = 1024
)

type Counts struct {
	Inventory int `json:"inventory"`
	Users     int `json:"users"`
	Orders    int `json:"orders"`
	Settings  int `json:"settings"`
}

type Storage struct {
	Counts      Counts  `json:"counts"`
	Bytes       int64   `json:"bytes"`
	MB          float64 `json:"mb"`
	PercentUsed float64 `json:"percentUsed"`
	RemainingMB float64 `json:"remainingMb"`
	FreeTierMB  int     `json:"freeTierMb"`
}

// StorageEstimate approximates the storage footprint from document counts.
func StorageEstimate(c Counts) Storage {
	raw := float64(c.Inventory*avgInventoryBytes + c.Users*avgUserBytes + c.Orders*avgOrderBytes + c.Settings*avgSettingsBytes)
	bytes := int64(math.Round(raw * indexOverhead))
	mb := float64(bytes) / (1024 * 1024)
	return Storage{
		Counts:      c,
		Bytes:       bytes,
		MB:          round2(mb),
		PercentUsed: round2(math.Min(100, mb/FreeTierMB*100)),
		RemainingMB: round2(math.Max(0, FreeTierMB-mb)),
		FreeTierMB:  FreeTierMB,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
