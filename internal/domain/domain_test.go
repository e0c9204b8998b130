package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindsMatchWithErrorsIs(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{Validation("complete all fields"), ErrValidation, "complete all fields"},
		{Validationf("bad %s", "price"), ErrValidation, "bad price"},
		{Permission("nope"), ErrPermission, "nope"},
		{Conflict("email already exists"), ErrConflict, "email already exists"},
		{NotFound("shop not found"), ErrNotFound, "shop not found"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.kind)
			assert.Equal(t, tc.msg, tc.err.Error())
			for _, other := range []error{ErrValidation, ErrPermission, ErrConflict, ErrNotFound, ErrStore} {
				if other != tc.kind {
					assert.NotErrorIs(t, tc.err, other)
				}
			}
		})
	}
}

func TestStoreFailure(t *testing.T) {
	assert.NoError(t, StoreFailure(nil))

	cause := errors.New("connection reset")
	err := StoreFailure(cause)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	v := Validation("keep me")
	assert.Same(t, v, StoreFailure(v), "typed errors pass through unchanged")
}

func TestAuditStampString(t *testing.T) {
	assert.Equal(t, "", AuditStamp{}.String())
	assert.Equal(t, "Admin (a@x.io)", AuditStamp{ActorRole: RoleAdmin, ActorEmail: "a@x.io"}.String())
	assert.Equal(t, "Owner (o@x.io)", AuditStamp{ActorRole: RoleOwner, ActorEmail: "o@x.io"}.String())
	assert.Equal(t, "Owner (o@x.io) - Main", AuditStamp{ActorRole: RoleStaff, ActorEmail: "o@x.io", ShopName: "Main"}.String())
}

func TestLineValueAndIdentity(t *testing.T) {
	line := InventoryLine{Price: decimal.RequireFromString("99.5"), Qty: 4}
	assert.True(t, line.Value().Equal(decimal.NewFromInt(398)))

	account := UserAccount{ID: "u1", Email: "o@x.io", Role: RoleOwner, ShopID: "s1", PasswordHash: "$2a$hash"}
	id := account.Identity()
	assert.True(t, id.IsShopScoped())
	assert.False(t, id.IsAdmin())
	require.Empty(t, account.Public().PasswordHash)
	assert.Equal(t, "$2a$hash", account.PasswordHash, "Public returns a copy")
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 5, s.LowStockQty)
	assert.True(t, s.LowStockValue.Equal(decimal.NewFromInt(1000)))
}
