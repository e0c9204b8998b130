package store

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidFieldName reports whether name can be used in filters and ordering.
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}

// Validate checks field names and cursor usage.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if !ValidFieldName(f.Field) {
			return ErrInvalidQuery
		}
		switch f.Op {
		case OpEqual, OpGreaterEqual, OpLess:
		default:
			return ErrInvalidQuery
		}
	}
	if q.OrderBy != nil && !ValidFieldName(q.OrderBy.Field) {
		return ErrInvalidQuery
	}
	if q.StartAfter != "" && q.OrderBy == nil {
		return ErrInvalidQuery
	}
	if q.Limit < 0 {
		return ErrInvalidQuery
	}
	return nil
}

// Apply filters, orders and pages docs in memory. Filter values must already
// be normalized.
func Apply(docs []Document, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	matched := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if Matches(doc.Fields, q.Filters) {
			matched = append(matched, doc)
		}
	}

	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Desc
		slices.SortStableFunc(matched, func(a, b Document) int {
			c := Compare(a.Fields[field], b.Fields[field])
			if c == 0 {
				c = strings.Compare(a.ID, b.ID)
			}
			if desc {
				return -c
			}
			return c
		})
	} else {
		slices.SortFunc(matched, func(a, b Document) int {
			return strings.Compare(a.ID, b.ID)
		})
	}

	if q.StartAfter != "" {
		idx := slices.IndexFunc(matched, func(d Document) bool { return d.ID == q.StartAfter })
		if idx < 0 {
			return nil, ErrNotFound
		}
		matched = matched[idx+1:]
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func Matches(fields Fields, filters []Filter) bool {
	for _, f := range filters {
		got, ok := fields[f.Field]
		switch f.Op {
		case OpEqual:
			if !ok || Compare(got, f.Value) != 0 || !sameKind(got, f.Value) {
				return false
			}
		case OpGreaterEqual:
			if !ok || Compare(got, f.Value) < 0 {
				return false
			}
		case OpLess:
			if !ok || Compare(got, f.Value) >= 0 {
				return false
			}
		}
	}
	return true
}

// Compare orders two JSON values: nil first, then numbers, then strings.
// Strings that both parse as RFC 3339 timestamps compare chronologically.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch va := a.(type) {
	case nil:
		return 0
	case json.Number:
		da, errA := decimal.NewFromString(va.String())
		db, errB := decimal.NewFromString(b.(json.Number).String())
		if errA != nil || errB != nil {
			return strings.Compare(va.String(), b.(json.Number).String())
		}
		return da.Cmp(db)
	case bool:
		vb := b.(bool)
		switch {
		case va == vb:
			return 0
		case !va:
			return -1
		default:
			return 1
		}
	case string:
		vb := b.(string)
		ta, errA := time.Parse(time.RFC3339Nano, va)
		tb, errB := time.Parse(time.RFC3339Nano, vb)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
		return strings.Compare(va, vb)
	default:
		return 0
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case json.Number:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func sameKind(a, b any) bool {
	return rank(a) == rank(b) && rank(a) != 4
}
