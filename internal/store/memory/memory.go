package memory

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/codingrush01/murlidhar-mobiles/internal/feed"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

// ErrInjected is returned by writes after FailWritesAfter trips.
var ErrInjected = errors.New("memory store: injected write failure")

type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]store.Fields
	hub  *feed.Hub

	failAfter int
}

func New(hub *feed.Hub) *Store {
	if hub == nil {
		hub = feed.NewHub(nil)
	}
	return &Store{
		docs:      make(map[string]map[string]store.Fields),
		hub:       hub,
		failAfter: -1,
	}
}

// FailWritesAfter lets n more writes succeed, then fails every later write
// with ErrInjected. A negative n disables injection. A batch counts as one
// write.
func (s *Store) FailWritesAfter(n int) {
	s.mu.Lock()
	s.failAfter = n
	s.mu.Unlock()
}

func (s *Store) Get(_ context.Context, collection string, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.docs[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{Collection: collection, ID: id, Fields: fields.Clone()}, nil
}

func (s *Store) Query(_ context.Context, collection string, q store.Query) ([]store.Document, error) {
	normalized, err := normalizeFilters(q.Filters)
	if err != nil {
		return nil, err
	}
	q.Filters = normalized

	s.mu.RLock()
	docs := make([]store.Document, 0, len(s.docs[collection]))
	for id, fields := range s.docs[collection] {
		docs = append(docs, store.Document{Collection: collection, ID: id, Fields: fields.Clone()})
	}
	s.mu.RUnlock()

	return store.Apply(docs, q)
}

func (s *Store) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection]), nil
}

func (s *Store) Upsert(_ context.Context, collection string, id string, fields store.Fields, merge bool) error {
	if collection == "" || id == "" {
		return store.ErrInvalidDocument
	}
	normalized, err := store.NormalizeFields(fields)
	if err != nil {
		return errors.Join(store.ErrInvalidDocument, err)
	}

	s.mu.Lock()
	if err := s.consumeWrite(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.put(collection, id, normalized, merge)
	s.mu.Unlock()

	s.hub.Publish(store.Change{Collection: collection, ID: id, Kind: store.ChangeUpserted})
	return nil
}

func (s *Store) Delete(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	if err := s.consumeWrite(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.docs[collection][id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.docs[collection], id)
	s.mu.Unlock()

	s.hub.Publish(store.Change{Collection: collection, ID: id, Kind: store.ChangeDeleted})
	return nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, fn func(store.Change)) func() {
	return s.hub.Subscribe(ctx, collection, fn)
}

func (s *Store) Batch() store.Batch {
	return &batch{store: s}
}

type batch struct {
	store.Staged
	store *Store
}

// Commit applies every staged op under one lock. Validation happens up front
// so either all ops land or none do.
func (b *batch) Commit(_ context.Context) error {
	if err := b.Seal(); err != nil {
		return err
	}

	normalized := make([]store.Fields, len(b.Ops))
	for i, op := range b.Ops {
		if op.Delete {
			continue
		}
		fields, err := store.NormalizeFields(op.Fields)
		if err != nil {
			return errors.Join(store.ErrInvalidDocument, err)
		}
		normalized[i] = fields
	}

	s := b.store
	s.mu.Lock()
	if err := s.consumeWrite(); err != nil {
		s.mu.Unlock()
		return err
	}
	changes := make([]store.Change, 0, len(b.Ops))
	for i, op := range b.Ops {
		if op.Delete {
			delete(s.docs[op.Collection], op.ID)
			changes = append(changes, store.Change{Collection: op.Collection, ID: op.ID, Kind: store.ChangeDeleted})
			continue
		}
		s.put(op.Collection, op.ID, normalized[i], op.Merge)
		changes = append(changes, store.Change{Collection: op.Collection, ID: op.ID, Kind: store.ChangeUpserted})
	}
	s.mu.Unlock()

	s.hub.Publish(changes...)
	return nil
}

// put must be called with mu held.
func (s *Store) put(collection string, id string, fields store.Fields, merge bool) {
	byID, ok := s.docs[collection]
	if !ok {
		byID = make(map[string]store.Fields)
		s.docs[collection] = byID
	}
	existing, ok := byID[id]
	if !merge || !ok {
		byID[id] = fields
		return
	}
	merged := existing.Clone()
	for k, v := range fields {
		merged[k] = v
	}
	byID[id] = merged
}

// consumeWrite must be called with mu held.
func (s *Store) consumeWrite() error {
	if s.failAfter < 0 {
		return nil
	}
	if s.failAfter == 0 {
		return ErrInjected
	}
	s.failAfter--
	return nil
}

func normalizeFilters(filters []store.Filter) ([]store.Filter, error) {
	out := make([]store.Filter, len(filters))
	for i, f := range filters {
		v, err := store.Normalize(f.Value)
		if err != nil {
			return nil, errors.Join(store.ErrInvalidQuery, err)
		}
		f.Value = v
		out[i] = f
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var _ store.DocumentStore = (*Store)(nil)
