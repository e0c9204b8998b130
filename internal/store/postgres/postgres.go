package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/codingrush01/murlidhar-mobiles/internal/feed"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db  *sql.DB
	hub *feed.Hub
}

func New(ctx context.Context, databaseURL string, hub *feed.Hub) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewWithDB(db, hub), nil
}

// NewWithDB wraps an already opened database.
func NewWithDB(db *sql.DB, hub *feed.Hub) *Store {
	if hub == nil {
		hub = feed.NewHub(nil)
	}
	return &Store{db: db, hub: hub}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the documents table and its indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

func (s *Store) Get(ctx context.Context, collection string, id string) (store.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, err
	}

	fields, err := store.DecodeFields(raw)
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{Collection: collection, ID: id, Fields: fields}, nil
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.StartAfter != "" {
		if _, err := s.Get(ctx, collection, q.StartAfter); err != nil {
			return nil, err
		}
	}

	query, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]store.Document, 0, 64)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := store.DecodeFields(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, store.Document{Collection: collection, ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE collection = $1`, collection).Scan(&n)
	return n, err
}

func (s *Store) Upsert(ctx context.Context, collection string, id string, fields store.Fields, merge bool) error {
	if collection == "" || id == "" {
		return store.ErrInvalidDocument
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return errors.Join(store.ErrInvalidDocument, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL(merge), collection, id, payload); err != nil {
		return mapWriteError(err)
	}
	s.hub.Publish(store.Change{Collection: collection, ID: id, Kind: store.ChangeUpserted})
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
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

// Commit applies the staged ops in one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if err := b.Seal(); err != nil {
		return err
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	changes := make([]store.Change, 0, len(b.Ops))
	for _, op := range b.Ops {
		if op.Delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, op.Collection, op.ID); err != nil {
				return err
			}
			changes = append(changes, store.Change{Collection: op.Collection, ID: op.ID, Kind: store.ChangeDeleted})
			continue
		}
		payload, err := json.Marshal(op.Fields)
		if err != nil {
			return errors.Join(store.ErrInvalidDocument, err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL(op.Merge), op.Collection, op.ID, payload); err != nil {
			return mapWriteError(err)
		}
		changes = append(changes, store.Change{Collection: op.Collection, ID: op.ID, Kind: store.ChangeUpserted})
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	b.store.hub.Publish(changes...)
	return nil
}

func upsertSQL(merge bool) string {
	update := "EXCLUDED.data"
	if merge {
		update = "documents.data || EXCLUDED.data"
	}
	return `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = ` + update + `, updated_at = now()`
}

// buildQuery renders q as SQL. Field names are validated by Query.Validate
// before they are embedded.
func buildQuery(collection string, q store.Query) (string, []any, error) {
	var (
		sb   strings.Builder
		args = []any{collection}
	)
	sb.WriteString("SELECT id, data FROM documents WHERE collection = $1")

	for _, f := range q.Filters {
		switch f.Op {
		case store.OpEqual:
			payload, err := json.Marshal(map[string]any{f.Field: f.Value})
			if err != nil {
				return "", nil, errors.Join(store.ErrInvalidQuery, err)
			}
			args = append(args, payload)
			fmt.Fprintf(&sb, " AND data @> $%d::jsonb", len(args))
		case store.OpGreaterEqual, store.OpLess:
			expr, value := rangeOperand(f.Field, f.Value)
			args = append(args, value)
			fmt.Fprintf(&sb, " AND %s %s $%d", expr, f.Op, len(args))
		}
	}

	if q.OrderBy != nil {
		expr := orderExpr(q.OrderBy.Field)
		dir, cmp := "ASC", ">"
		if q.OrderBy.Desc {
			dir, cmp = "DESC", "<"
		}
		if q.StartAfter != "" {
			args = append(args, q.StartAfter)
			n := len(args)
			fmt.Fprintf(&sb, " AND (%s, id) %s ((SELECT %s FROM documents WHERE collection = $1 AND id = $%d), $%d)", expr, cmp, expr, n, n)
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s, id %s", expr, dir, dir)
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args, nil
}

// orderExpr sorts *At fields as timestamps and everything else as text.
func orderExpr(field string) string {
	if strings.HasSuffix(field, "At") {
		return fmt.Sprintf("(data->>'%s')::timestamptz", field)
	}
	return fmt.Sprintf("(data->>'%s')", field)
}

func rangeOperand(field string, value any) (string, any) {
	switch v := value.(type) {
	case time.Time:
		return fmt.Sprintf("(data->>'%s')::timestamptz", field), v.UTC()
	case int:
		return fmt.Sprintf("(data->>'%s')::numeric", field), v
	case int64:
		return fmt.Sprintf("(data->>'%s')::numeric", field), v
	case float64:
		return fmt.Sprintf("(data->>'%s')::numeric", field), v
	case json.Number:
		return fmt.Sprintf("(data->>'%s')::numeric", field), v.String()
	case decimal.Decimal:
		return fmt.Sprintf("(data->>'%s')::numeric", field), v.String()
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return fmt.Sprintf("(data->>'%s')::timestamptz", field), t.UTC()
		}
		return fmt.Sprintf("(data->>'%s')", field), v
	default:
		return fmt.Sprintf("(data->>'%s')", field), fmt.Sprint(v)
	}
}

func mapWriteError(err error) error {
	if isUniqueViolation(err) {
		return errors.Join(store.ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ store.DocumentStore = (*Store)(nil)
