package feed

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

func TestHubRoutesByCollection(t *testing.T) {
	hub := NewHub(nil)

	var inventory, all []store.Change
	hub.Subscribe(context.Background(), "inventory", func(c store.Change) { inventory = append(inventory, c) })
	hub.Subscribe(context.Background(), "", func(c store.Change) { all = append(all, c) })

	hub.Publish(
		store.Change{Collection: "inventory", ID: "a", Kind: store.ChangeUpserted},
		store.Change{Collection: "shops", ID: "s", Kind: store.ChangeDeleted},
	)

	require.Len(t, inventory, 1)
	assert.Equal(t, "a", inventory[0].ID)
	assert.Len(t, all, 2)
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	unsubscribe := hub.Subscribe(context.Background(), "inventory", func(store.Change) { calls++ })

	hub.Publish(store.Change{Collection: "inventory", ID: "a"})
	unsubscribe()
	unsubscribe()
	hub.Publish(store.Change{Collection: "inventory", ID: "b"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, hub.Len())
}

func TestHubUnsubscribesWhenContextDone(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	hub.Subscribe(ctx, "inventory", func(store.Change) {})
	require.Equal(t, 1, hub.Len())

	cancel()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubUnsubscribeReleasesContextWatcher(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unsubscribe := hub.Subscribe(ctx, "inventory", func(store.Change) {})
	unsubscribe()

	done := make(chan struct{})
	go func() {
		hub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher still waiting on a live context after unsubscribe")
	}
	assert.Equal(t, 0, hub.Len())
}

func TestHubSurvivesPanickingSubscriber(t *testing.T) {
	hub := NewHub(nil)
	got := 0
	hub.Subscribe(context.Background(), "", func(store.Change) { panic("boom") })
	hub.Subscribe(context.Background(), "", func(store.Change) { got++ })

	assert.NotPanics(t, func() { hub.Publish(store.Change{Collection: "x", ID: "1"}) })
	assert.Equal(t, 1, got)
}

func TestHubRelayOnlyOnPublish(t *testing.T) {
	hub := NewHub(nil)
	var relayed []store.Change
	hub.SetRelay(func(c store.Change) { relayed = append(relayed, c) })

	hub.Publish(store.Change{Collection: "inventory", ID: "local"})
	hub.Deliver(store.Change{Collection: "inventory", ID: "remote"})

	require.Len(t, relayed, 1)
	assert.Equal(t, "local", relayed[0].ID)
}

func TestRedisBridgeIgnoresOwnOrigin(t *testing.T) {
	hub := NewHub(nil)
	var got []store.Change
	hub.Subscribe(context.Background(), "", func(c store.Change) { got = append(got, c) })

	bridge := NewRedisBridge("127.0.0.1:0", "", 0, "test", hub, nil)
	t.Cleanup(func() { _ = bridge.client.Close() })

	own, err := bridge.encode(store.Change{Collection: "inventory", ID: "mine"})
	require.NoError(t, err)
	bridge.handle(string(own))
	bridge.handle(`{"origin":"proc-other","change":{"collection":"inventory","id":"theirs","kind":"upserted"}}`)
	bridge.handle(`not json`)

	require.Len(t, got, 1)
	assert.Equal(t, "theirs", got[0].ID)
}

func TestRedisBridgeRelaysBetweenProcesses(t *testing.T) {
	addr := os.Getenv("MURLIDHAR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set MURLIDHAR_TEST_REDIS_ADDR to run redis bridge integration test")
	}
	ctx := context.Background()
	channel := "murlidhar-test-" + time.Now().Format("150405.000000")

	hubA, hubB := NewHub(nil), NewHub(nil)
	bridgeA := NewRedisBridge(addr, "", 0, channel, hubA, nil)
	bridgeB := NewRedisBridge(addr, "", 0, channel, hubB, nil)
	require.NoError(t, bridgeA.Start(ctx))
	require.NoError(t, bridgeB.Start(ctx))
	t.Cleanup(func() {
		_ = bridgeA.Close()
		_ = bridgeB.Close()
	})

	var mu sync.Mutex
	var received []store.Change
	hubB.Subscribe(ctx, "inventory", func(c store.Change) {
		mu.Lock()
		received = append(received, c)
		mu.Unlock()
	})

	hubA.Publish(store.Change{Collection: "inventory", ID: "line-1", Kind: store.ChangeUpserted})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0].ID == "line-1"
	}, 3*time.Second, 20*time.Millisecond)
}
