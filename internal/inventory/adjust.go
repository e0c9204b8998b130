package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

// AdjustQty moves qty by one step. A decrement at zero is rejected.
func AdjustQty(line domain.InventoryLine, by int, actor domain.Identity, shopName string, now time.Time) (domain.InventoryLine, error) {
	if by != 1 && by != -1 {
		return domain.InventoryLine{}, domain.Validation("adjustment must be +1 or -1")
	}
	if line.Qty+by < 0 {
		return domain.InventoryLine{}, domain.Validation("quantity cannot go below zero")
	}
	return touch(line, line.Qty+by, line.Price, actor, shopName, now), nil
}

// Restock adds addQty units at a new price.
func Restock(line domain.InventoryLine, price decimal.Decimal, addQty int, actor domain.Identity, shopName string, now time.Time) (domain.InventoryLine, error) {
	if addQty < 1 {
		return domain.InventoryLine{}, domain.Validation("enter valid quantity")
	}
	if price.IsNegative() {
		return domain.InventoryLine{}, domain.Validation("price cannot be negative")
	}
	return touch(line, line.Qty+addQty, price, actor, shopName, now), nil
}

// Edit sets absolute price and/or qty. Nil leaves the field as is.
func Edit(line domain.InventoryLine, price *decimal.Decimal, qty *int, actor domain.Identity, shopName string, now time.Time) (domain.InventoryLine, error) {
	if price == nil && qty == nil {
		return domain.InventoryLine{}, domain.Validation("nothing to update")
	}
	newPrice, newQty := line.Price, line.Qty
	if price != nil {
		if price.IsNegative() {
			return domain.InventoryLine{}, domain.Validation("price cannot be negative")
		}
		newPrice = *price
	}
	if qty != nil {
		if *qty < 0 {
			return domain.InventoryLine{}, domain.Validation("quantity cannot be negative")
		}
		newQty = *qty
	}
	return touch(line, newQty, newPrice, actor, shopName, now), nil
}

func touch(line domain.InventoryLine, qty int, price decimal.Decimal, actor domain.Identity, shopName string, now time.Time) domain.InventoryLine {
	line.OldQty = line.Qty
	line.Qty = qty
	line.Price = price
	line.UpdatedAt = now.UTC()
	line.UpdatedBy = Stamp(actor, shopName)
	return line
}

// MutationFields is the partial document written back for a single-line
// change. Only the mutated fields travel so concurrent edits of other fields
// survive.
func MutationFields(line domain.InventoryLine) store.Fields {
	return store.Fields{
		"price":     line.Price,
		"qty":       line.Qty,
		"old_qty":   line.OldQty,
		"updatedAt": line.UpdatedAt,
		"updatedBy": line.UpdatedBy,
	}
}
