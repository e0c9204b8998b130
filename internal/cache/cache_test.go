package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	entries map[string][]byte
	failGet bool
}

func (m *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if m.failGet {
		return false, errors.New("cache down")
	}
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

type payload struct {
	Total int `json:"total"`
}

func TestKeyIsStableAndNamespaced(t *testing.T) {
	a := Key("dashboard", "all", "7")
	assert.Equal(t, a, Key("dashboard", "all", "7"))
	assert.NotEqual(t, a, Key("dashboard", "all", "8"))
	assert.NotEqual(t, a, Key("summary", "all", "7"))
	assert.Contains(t, a, "murlidhar:dashboard:")
}

func TestLoadComputesOnce(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{entries: map[string][]byte{}}
	calls := 0
	compute := func() (payload, error) {
		calls++
		return payload{Total: 42}, nil
	}

	first, err := Load(ctx, c, "k", time.Minute, compute)
	require.NoError(t, err)
	second, err := Load(ctx, c, "k", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, 42, first.Total)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestLoadSurvivesCacheFailure(t *testing.T) {
	c := &mapCache{entries: map[string][]byte{}, failGet: true}
	got, err := Load(context.Background(), c, "k", time.Minute, func() (payload, error) {
		return payload{Total: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Total)

	_, err = Load[payload](context.Background(), nil, "k", time.Minute, func() (payload, error) {
		return payload{}, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestRedisDashboardCache(t *testing.T) {
	addr := os.Getenv("MURLIDHAR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MURLIDHAR_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := NewRedisDashboardCache(addr, "", 0)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	key := Key("test", time.Now().String())
	var got payload
	ok, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, payload{Total: 3}, time.Minute))
	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, got.Total)
}
