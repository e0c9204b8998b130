package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
	At    time.Time       `json:"at"`
}

func TestEncodeDecodeRoundTripsID(t *testing.T) {
	in := sample{ID: "x1", Name: "Flip", Price: decimal.RequireFromString("99.50"), Qty: 3, At: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}

	fields, err := Encode(in)
	require.NoError(t, err)
	_, hasID := fields["id"]
	assert.False(t, hasID)
	assert.Equal(t, json.Number("3"), fields["qty"])

	var out sample
	require.NoError(t, Decode(Document{ID: "x1", Fields: fields}, &out))
	assert.Equal(t, "x1", out.ID)
	assert.True(t, out.Price.Equal(in.Price))
	assert.True(t, out.At.Equal(in.At))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(json.Number("2"), json.Number("10")))
	assert.Equal(t, 0, Compare(json.Number("2.0"), json.Number("2")))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.Equal(t, -1, Compare(nil, "a"))

	tenth := "2026-01-01T10:00:01.1Z"
	twelveHundredths := "2026-01-01T10:00:01.12Z"
	assert.Equal(t, -1, Compare(tenth, twelveHundredths), "timestamps compare chronologically, not lexically")
}

func TestMatchesRequiresSameKind(t *testing.T) {
	fields := Fields{"qty": json.Number("5"), "shop_id": "A"}
	assert.True(t, Matches(fields, []Filter{Where("shop_id", OpEqual, "A")}))
	assert.False(t, Matches(fields, []Filter{Where("qty", OpEqual, "5")}))
	assert.True(t, Matches(fields, []Filter{Where("qty", OpLess, json.Number("6"))}))
	assert.False(t, Matches(fields, []Filter{Where("missing", OpEqual, "A")}))
}

func TestApplyCursorAndValidation(t *testing.T) {
	docs := []Document{
		{ID: "b", Fields: Fields{"n": json.Number("2")}},
		{ID: "a", Fields: Fields{"n": json.Number("1")}},
		{ID: "c", Fields: Fields{"n": json.Number("3")}},
	}

	out, err := Apply(docs, Query{OrderBy: &OrderBy{Field: "n"}, StartAfter: "a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)

	_, err = Apply(docs, Query{OrderBy: &OrderBy{Field: "n"}, StartAfter: "zzz"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Apply(docs, Query{OrderBy: &OrderBy{Field: "n; DROP"}})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestStagedSeal(t *testing.T) {
	var s Staged
	s.Set("inventory", "k", Fields{}, true)
	s.Delete("inventory", "old")
	require.NoError(t, s.Seal())
	assert.ErrorIs(t, s.Seal(), ErrBatchCommitted)
	assert.Len(t, s.Ops, 2)
	assert.True(t, s.Ops[1].Delete)
}

func TestFieldsCloneIsDeep(t *testing.T) {
	f := Fields{"updatedBy": map[string]any{"actorEmail": "a@x"}}
	c := f.Clone()
	c["updatedBy"].(map[string]any)["actorEmail"] = "b@x"
	assert.Equal(t, "a@x", f["updatedBy"].(map[string]any)["actorEmail"])
}
