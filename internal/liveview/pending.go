package liveview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolledBack"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrSettled = errors.New("pending write already settled")

// PendingWrite is one optimistic change to a line. Begin shows next in the
// view right away; Rollback puts the prior snapshot back.
type PendingWrite struct {
	view     *View
	id       string
	prior    domain.InventoryLine
	hadPrior bool

	mu    sync.Mutex
	state State
}

func (v *View) Begin(next domain.InventoryLine) *PendingWrite {
	prior, ok := v.Line(next.ID)
	v.put(next)
	return &PendingWrite{view: v, id: next.ID, prior: prior, hadPrior: ok, state: StatePending}
}

func (p *PendingWrite) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PendingWrite) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePending {
		return fmt.Errorf("%w: %s", ErrSettled, p.state)
	}
	p.state = StateCommitted
	return nil
}

func (p *PendingWrite) Rollback() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePending {
		return fmt.Errorf("%w: %s", ErrSettled, p.state)
	}
	if p.hadPrior {
		p.view.put(p.prior)
	} else {
		p.view.remove(p.id)
	}
	p.state = StateRolledBack
	return nil
}

// Write applies next optimistically, persists it and rolls back on failure.
func (v *View) Write(ctx context.Context, next domain.InventoryLine, persist func(context.Context) error) error {
	pw := v.Begin(next)
	if err := persist(ctx); err != nil {
		_ = pw.Rollback()
		v.log.Warn("optimistic write rolled back", zap.String("id", next.ID), zap.Error(err))
		return domain.StoreFailure(err)
	}
	return pw.Commit()
}
