// Package access gates writes by role and exposes the capability set used by
// clients to decide what to show.
package access

import (
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

const (
	CapWriteInventory          = "writeInventory"
	CapDeleteInventory         = "deleteInventory"
	CapManageShops             = "manageShops"
	CapManageUsers             = "manageUsers"
	CapManageCatalog           = "manageCatalog"
	CapManageInventorySettings = "manageInventorySettings"
	CapViewAllShops            = "viewAllShops"
)

var allCapabilities = []string{
	CapWriteInventory,
	CapDeleteInventory,
	CapManageShops,
	CapManageUsers,
	CapManageCatalog,
	CapManageInventorySettings,
	CapViewAllShops,
}

// CanWriteShop reports whether id may write data of targetShopID.
func CanWriteShop(id domain.Identity, targetShopID string) bool {
	if id.IsAdmin() {
		return true
	}
	return id.IsShopScoped() && id.ShopID != "" && id.ShopID == targetShopID
}

func CanManageUsers(id domain.Identity) bool {
	return id.IsAdmin()
}

func RequireWriteShop(id domain.Identity, targetShopID string) error {
	if !CanWriteShop(id, targetShopID) {
		return domain.Permission("you cannot modify another shop's data")
	}
	return nil
}

func RequireManageUsers(id domain.Identity) error {
	if !CanManageUsers(id) {
		return domain.Permission("only admins can manage users")
	}
	return nil
}

// Capabilities evaluates every capability for id.
func Capabilities(id domain.Identity) map[string]bool {
	caps := make(map[string]bool, len(allCapabilities))
	for _, c := range allCapabilities {
		caps[c] = false
	}
	switch {
	case id.IsAdmin():
		for _, c := range allCapabilities {
			caps[c] = true
		}
	case id.IsShopScoped() && id.ShopID != "":
		caps[CapWriteInventory] = true
	}
	return caps
}

func HasCapability(id domain.Identity, name string) bool {
	return Capabilities(id)[name]
}

// Require fails with a PermissionError when id lacks the capability.
func Require(id domain.Identity, name string) error {
	if !HasCapability(id, name) {
		return domain.Permission("missing capability " + name)
	}
	return nil
}
