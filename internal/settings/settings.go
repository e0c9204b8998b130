// Package settings holds the global inventory thresholds as an immutable
// value that components read and observe.
package settings

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

type Store struct {
	docs     store.DocumentStore
	fallback domain.Settings
	log      *zap.Logger

	mu        sync.RWMutex
	current   domain.Settings
	observers map[int]func(domain.Settings)
	nextID    int
}

// New starts from fallback until Load or a change event replaces it.
func New(docs store.DocumentStore, fallback domain.Settings, log *zap.Logger) *Store {
	return &Store{
		docs:      docs,
		fallback:  fallback,
		current:   fallback,
		observers: make(map[int]func(domain.Settings)),
		log:       logger.OrNop(log).Named("settings"),
	}
}

func (s *Store) Current() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Load reads settings/global. A missing document keeps the fallback.
func (s *Store) Load(ctx context.Context) (domain.Settings, error) {
	doc, err := s.docs.Get(ctx, domain.CollectionSettings, domain.SettingsGlobalID)
	if errors.Is(err, store.ErrNotFound) {
		s.set(s.fallback)
		return s.fallback, nil
	}
	if err != nil {
		return s.Current(), domain.StoreFailure(err)
	}

	next := s.fallback
	if err := store.Decode(doc, &next); err != nil {
		return s.Current(), domain.StoreFailure(err)
	}
	s.set(next)
	return next, nil
}

// Update validates and persists next. Observers are notified once the
// change feed reports the write, or immediately when no Watch is running.
func (s *Store) Update(ctx context.Context, next domain.Settings) error {
	if err := Validate(next); err != nil {
		return err
	}
	fields, err := store.Encode(next)
	if err != nil {
		return domain.StoreFailure(err)
	}
	if err := s.docs.Upsert(ctx, domain.CollectionSettings, domain.SettingsGlobalID, fields, true); err != nil {
		return domain.StoreFailure(err)
	}
	s.set(next)
	return nil
}

func Validate(v domain.Settings) error {
	if v.LowStockQty < 0 {
		return domain.Validation("low stock quantity cannot be negative")
	}
	if v.LowStockValue.IsNegative() {
		return domain.Validation("low stock value cannot be negative")
	}
	return nil
}

// Subscribe calls fn with every new value until the returned func is called.
func (s *Store) Subscribe(fn func(domain.Settings)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Watch reloads on every change to settings/global until ctx is done.
func (s *Store) Watch(ctx context.Context) func() {
	return s.docs.Subscribe(ctx, domain.CollectionSettings, func(c store.Change) {
		if c.ID != domain.SettingsGlobalID {
			return
		}
		if c.Kind == store.ChangeDeleted {
			s.set(s.fallback)
			return
		}
		if _, err := s.Load(ctx); err != nil {
			s.log.Warn("reload settings failed", zap.Error(err))
		}
	})
}

func (s *Store) set(next domain.Settings) {
	s.mu.Lock()
	if s.current.LowStockQty == next.LowStockQty && s.current.LowStockValue.Equal(next.LowStockValue) {
		s.mu.Unlock()
		return
	}
	s.current = next
	observers := make([]func(domain.Settings), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}
