package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

// Hub fans committed document changes out to in-process subscribers and,
// when a relay is attached, to other processes.
type Hub struct {
	mu     sync.RWMutex
	next   uint64
	subs   map[uint64]subscription
	relay  func(store.Change)
	logger *zap.Logger

	// watchers counts goroutines waiting on a subscription context.
	watchers sync.WaitGroup
}

type subscription struct {
	collection string
	fn         func(store.Change)
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]subscription),
		logger: logger.OrNop(log).Named("feed"),
	}
}

// SetRelay forwards every locally published change to fn.
func (h *Hub) SetRelay(fn func(store.Change)) {
	h.mu.Lock()
	h.relay = fn
	h.mu.Unlock()
}

// Subscribe registers fn for changes to collection. An empty collection
// receives everything.
func (h *Hub) Subscribe(ctx context.Context, collection string, fn func(store.Change)) func() {
	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[id] = subscription{collection: collection, fn: fn}
	h.mu.Unlock()

	stopped := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(stopped)
		})
	}

	if ctx != nil && ctx.Done() != nil {
		h.watchers.Add(1)
		go func() {
			defer h.watchers.Done()
			select {
			case <-ctx.Done():
				unsubscribe()
			case <-stopped:
			}
		}()
	}
	return unsubscribe
}

// Publish delivers locally and relays.
func (h *Hub) Publish(changes ...store.Change) {
	h.Deliver(changes...)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return
	}
	for _, c := range changes {
		relay(c)
	}
}

// Deliver notifies local subscribers only.
func (h *Hub) Deliver(changes ...store.Change) {
	h.mu.RLock()
	targets := make([]subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, c := range changes {
		for _, sub := range targets {
			if sub.collection != "" && sub.collection != c.Collection {
				continue
			}
			h.safeCall(sub.fn, c)
		}
	}
}

func (h *Hub) safeCall(fn func(store.Change), c store.Change) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("subscriber panicked",
				zap.String("collection", c.Collection),
				zap.String("id", c.ID),
				zap.Any("panic", r),
			)
		}
	}()
	fn(c)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Wait blocks until every context watcher has exited.
func (h *Hub) Wait() {
	h.watchers.Wait()
}
