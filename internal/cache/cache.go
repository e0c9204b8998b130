package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// DashboardCache stores derived read payloads (dashboard, summaries) as JSON.
type DashboardCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

// Key hashes parts into a namespaced cache key.
func Key(namespace string, parts ...string) string {
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "murlidhar:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// Load returns the cached value at key, or computes and stores it. A failing
// cache never fails the read.
func Load[T any](ctx context.Context, c DashboardCache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if c == nil {
		c = NoopDashboardCache{}
	}

	var cached T
	if ok, err := c.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	value, err := compute()
	if err != nil {
		return value, err
	}
	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}
