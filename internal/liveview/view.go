// Package liveview keeps an in-memory snapshot of the inventory collection
// that follows the change feed, and layers optimistic writes on top of it.
package liveview

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

type View struct {
	docs store.DocumentStore
	log  *zap.Logger

	mu        sync.RWMutex
	lines     map[string]domain.InventoryLine
	revision  uint64
	observers map[int]func(uint64)
	nextObs   int
	started   bool
}

func New(docs store.DocumentStore, log *zap.Logger) *View {
	return &View{
		docs:      docs,
		log:       logger.OrNop(log).Named("liveview"),
		lines:     make(map[string]domain.InventoryLine),
		observers: make(map[int]func(uint64)),
	}
}

// Start subscribes to inventory changes and loads the current collection.
// The returned func stops following the feed.
func (v *View) Start(ctx context.Context) (func(), error) {
	stop := v.docs.Subscribe(ctx, domain.CollectionInventory, func(c store.Change) {
		v.refresh(ctx, c)
	})

	docs, err := v.docs.Query(ctx, domain.CollectionInventory, store.Query{})
	if err != nil {
		stop()
		return nil, domain.StoreFailure(err)
	}
	lines, err := store.DecodeAll[domain.InventoryLine](docs)
	if err != nil {
		stop()
		return nil, domain.StoreFailure(err)
	}

	v.mu.Lock()
	for _, l := range lines {
		v.lines[l.ID] = l
	}
	v.started = true
	v.mu.Unlock()
	v.bump()
	return stop, nil
}

func (v *View) Started() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.started
}

// Lines returns a copy of the snapshot ordered by id.
func (v *View) Lines() []domain.InventoryLine {
	v.mu.RLock()
	out := make([]domain.InventoryLine, 0, len(v.lines))
	for _, l := range v.lines {
		out = append(out, l)
	}
	v.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.InventoryLine) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (v *View) Line(id string) (domain.InventoryLine, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	l, ok := v.lines[id]
	return l, ok
}

// Revision increases on every change to the snapshot.
func (v *View) Revision() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.revision
}

// OnChange calls fn with the new revision after every change.
func (v *View) OnChange(fn func(revision uint64)) func() {
	v.mu.Lock()
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.observers, id)
			v.mu.Unlock()
		})
	}
}

func (v *View) refresh(ctx context.Context, c store.Change) {
	if c.Kind == store.ChangeDeleted {
		v.remove(c.ID)
		return
	}
	doc, err := v.docs.Get(ctx, domain.CollectionInventory, c.ID)
	if errors.Is(err, store.ErrNotFound) {
		v.remove(c.ID)
		return
	}
	if err != nil {
		v.log.Warn("refresh inventory line failed", zap.String("id", c.ID), zap.Error(err))
		return
	}
	var line domain.InventoryLine
	if err := store.Decode(doc, &line); err != nil {
		v.log.Warn("decode inventory line failed", zap.String("id", c.ID), zap.Error(err))
		return
	}
	v.put(line)
}

func (v *View) put(line domain.InventoryLine) {
	v.mu.Lock()
	v.lines[line.ID] = line
	v.mu.Unlock()
	v.bump()
}

func (v *View) remove(id string) {
	v.mu.Lock()
	delete(v.lines, id)
	v.mu.Unlock()
	v.bump()
}

func (v *View) bump() {
	v.mu.Lock()
	v.revision++
	rev := v.revision
	observers := make([]func(uint64), 0, len(v.observers))
	for _, fn := range v.observers {
		observers = append(observers, fn)
	}
	v.mu.Unlock()

	for _, fn := range observers {
		fn(rev)
	}
}
