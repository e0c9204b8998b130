package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

func TestCanWriteShop(t *testing.T) {
	cases := []struct {
		name   string
		id     domain.Identity
		target string
		want   bool
	}{
		{"owner other shop", domain.Identity{Role: domain.RoleOwner, ShopID: "S1"}, "S2", false},
		{"owner own shop", domain.Identity{Role: domain.RoleOwner, ShopID: "S1"}, "S1", true},
		{"staff own shop", domain.Identity{Role: domain.RoleStaff, ShopID: "S1"}, "S1", true},
		{"admin any shop", domain.Identity{Role: domain.RoleAdmin}, "S2", true},
		{"owner without shop", domain.Identity{Role: domain.RoleOwner}, "", false},
		{"unknown role", domain.Identity{Role: "guest", ShopID: "S1"}, "S1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanWriteShop(tc.id, tc.target))
			err := RequireWriteShop(tc.id, tc.target)
			if tc.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrPermission)
			}
		})
	}
}

func TestCanManageUsers(t *testing.T) {
	assert.True(t, CanManageUsers(domain.Identity{Role: domain.RoleAdmin}))
	assert.False(t, CanManageUsers(domain.Identity{Role: domain.RoleOwner, ShopID: "S1"}))
	assert.ErrorIs(t, RequireManageUsers(domain.Identity{Role: domain.RoleStaff, ShopID: "S1"}), domain.ErrPermission)
}

func TestCapabilities(t *testing.T) {
	adminCaps := Capabilities(domain.Identity{Role: domain.RoleAdmin})
	assert.Len(t, adminCaps, len(allCapabilities))
	for name, ok := range adminCaps {
		assert.True(t, ok, name)
	}

	owner := domain.Identity{Role: domain.RoleOwner, ShopID: "S1"}
	ownerCaps := Capabilities(owner)
	assert.True(t, ownerCaps[CapWriteInventory])
	assert.False(t, ownerCaps[CapDeleteInventory])
	assert.False(t, ownerCaps[CapManageInventorySettings])
	assert.False(t, HasCapability(owner, CapViewAllShops))
	assert.ErrorIs(t, Require(owner, CapManageShops), domain.ErrPermission)

	assert.False(t, Capabilities(domain.Identity{})[CapWriteInventory])
}
