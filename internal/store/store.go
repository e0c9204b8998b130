package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidDocument = errors.New("invalid document")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrBatchCommitted  = errors.New("batch already committed")
	ErrDuplicate       = errors.New("duplicate document")
)

// Fields is the JSON-shaped body of a document.
type Fields map[string]any

type Document struct {
	Collection string
	ID         string
	Fields     Fields
}

type Op string

const (
	OpEqual        Op = "=="
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type OrderBy struct {
	Field string
	Desc  bool
}

// Query selects documents of one collection. StartAfter is the id of the last
// document of the previous page; it requires OrderBy.
type Query struct {
	Filters    []Filter
	OrderBy    *OrderBy
	Limit      int
	StartAfter string
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeDeleted  ChangeKind = "deleted"
)

type Change struct {
	Collection string     `json:"collection"`
	ID         string     `json:"id"`
	Kind       ChangeKind `json:"kind"`
}

type Reader interface {
	Get(ctx context.Context, collection string, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
}

type Writer interface {
	// Upsert writes fields at collection/id. With merge, top-level fields are
	// merged into an existing document; without it the document is replaced.
	Upsert(ctx context.Context, collection string, id string, fields Fields, merge bool) error
	Delete(ctx context.Context, collection string, id string) error
}

// Batch stages writes that Commit applies all-or-nothing.
type Batch interface {
	Set(collection string, id string, fields Fields, merge bool)
	Delete(collection string, id string)
	Commit(ctx context.Context) error
}

type DocumentStore interface {
	Reader
	Writer
	// Subscribe calls fn for every committed change in collection until the
	// returned function is called or ctx is done.
	Subscribe(ctx context.Context, collection string, fn func(Change)) func()
	Batch() Batch
	Count(ctx context.Context, collection string) (int, error)
}

// BatchOp is one staged write.
type BatchOp struct {
	Collection string
	ID         string
	Fields     Fields
	Merge      bool
	Delete     bool
}

// Staged collects batch operations for implementations to apply.
type Staged struct {
	Ops       []BatchOp
	committed bool
}

func (s *Staged) Set(collection string, id string, fields Fields, merge bool) {
	s.Ops = append(s.Ops, BatchOp{Collection: collection, ID: id, Fields: fields, Merge: merge})
}

func (s *Staged) Delete(collection string, id string) {
	s.Ops = append(s.Ops, BatchOp{Collection: collection, ID: id, Delete: true})
}

// Seal marks the batch committed. It fails on reuse or invalid ops.
func (s *Staged) Seal() error {
	if s.committed {
		return ErrBatchCommitted
	}
	for _, op := range s.Ops {
		if op.Collection == "" || op.ID == "" {
			return ErrInvalidDocument
		}
	}
	s.committed = true
	return nil
}
