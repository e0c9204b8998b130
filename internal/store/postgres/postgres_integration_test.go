package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

func TestDocumentRoundTripAgainstPostgres(t *testing.T) {
	databaseURL := os.Getenv("MURLIDHAR_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MURLIDHAR_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(ctx))

	collection := fmt.Sprintf("it_inventory_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
	})

	base := time.Now().UTC().Truncate(time.Millisecond)
	b := s.Batch()
	for i, id := range []string{"k1", "k2", "k3"} {
		b.Set(collection, id, store.Fields{
			"shop_id":   "A",
			"qty":       i + 1,
			"updatedAt": base.Add(time.Duration(i) * time.Second),
		}, false)
	}
	require.NoError(t, b.Commit(ctx))

	require.NoError(t, s.Upsert(ctx, collection, "k1", store.Fields{"qty": 9}, true))
	doc, err := s.Get(ctx, collection, "k1")
	require.NoError(t, err)
	assert.Equal(t, "A", doc.Fields["shop_id"], "merge keeps untouched fields")

	q := store.Query{
		Filters: []store.Filter{store.Where("shop_id", store.OpEqual, "A")},
		OrderBy: &store.OrderBy{Field: "updatedAt", Desc: true},
		Limit:   2,
	}
	page, err := s.Query(ctx, collection, q)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "k3", page[0].ID)

	q.StartAfter = page[1].ID
	rest, err := s.Query(ctx, collection, q)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "k1", rest[0].ID)

	n, err := s.Count(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
