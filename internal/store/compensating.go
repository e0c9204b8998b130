package store

import (
	"context"
	"errors"
	"fmt"
)

// SingleWriter is a store that can only write one document at a time.
type SingleWriter interface {
	Reader
	Writer
}

// CompensatingBatch emulates an atomic batch on a SingleWriter. Prior
// versions of every touched document are captured before each write; when a
// write fails the applied ones are reverted in reverse order.
type CompensatingBatch struct {
	Staged
	target SingleWriter
}

func NewCompensatingBatch(target SingleWriter) *CompensatingBatch {
	return &CompensatingBatch{target: target}
}

type undo struct {
	collection string
	id         string
	prior      Fields
	existed    bool
}

func (b *CompensatingBatch) Commit(ctx context.Context) error {
	if err := b.Seal(); err != nil {
		return err
	}

	applied := make([]undo, 0, len(b.Ops))
	for _, op := range b.Ops {
		prior, err := b.target.Get(ctx, op.Collection, op.ID)
		existed := true
		if errors.Is(err, ErrNotFound) {
			existed = false
		} else if err != nil {
			return errors.Join(err, b.revert(ctx, applied))
		}

		if op.Delete {
			err = b.target.Delete(ctx, op.Collection, op.ID)
		} else {
			err = b.target.Upsert(ctx, op.Collection, op.ID, op.Fields, op.Merge)
		}
		if err != nil {
			return errors.Join(err, b.revert(ctx, applied))
		}
		applied = append(applied, undo{collection: op.Collection, id: op.ID, prior: prior.Fields, existed: existed})
	}
	return nil
}

func (b *CompensatingBatch) revert(ctx context.Context, applied []undo) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		u := applied[i]
		var err error
		if u.existed {
			err = b.target.Upsert(ctx, u.collection, u.id, u.prior, false)
		} else {
			err = b.target.Delete(ctx, u.collection, u.id)
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("revert %s/%s: %w", u.collection, u.id, err))
		}
	}
	return errors.Join(errs...)
}
