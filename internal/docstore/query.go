package docstore

import (
	"reflect"
	"sort"
	"strings"
	"time"
)

// Op is a filter operator.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpGt
	OpGte
	OpLt
	OpLte
	// OpExists matches documents where the field is present and non-nil.
	OpExists
	// OpContains is a case-insensitive substring match on a string field.
	OpContains
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpIn:
		return "in"
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpExists:
		return "exists"
	case OpContains:
		return "contains"
	default:
		return "?"
	}
}

// Filter is one field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Collection starts a query over the given collection path.
func Collection(path string) Query {
	return Query{Collection: path}
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Order returns a copy of q sorted by field.
func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// WithLimit returns a copy of q capped at n results; n <= 0 means no cap.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Matches reports whether d passes every filter.
func (q Query) Matches(d Data) bool {
	for _, f := range q.Filters {
		if !f.matches(d) {
			return false
		}
	}
	return true
}

// Apply filters, orders, and limits snapshots that belong to q.Collection.
func (q Query) Apply(snaps []Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if !s.Exists() || !InCollection(s.Path, q.Collection) {
			continue
		}
		if q.Matches(s.Data) {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a, aok := out[i].Data[q.OrderBy]
			b, bok := out[j].Data[q.OrderBy]
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case aok && bok:
				if c, ok := compare(a, b); ok && c != 0 {
					if q.Descending {
						return c > 0
					}
					return c < 0
				}
			}
		}
		return out[i].Path < out[j].Path
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (f Filter) matches(d Data) bool {
	v, present := d[f.Field]
	switch f.Op {
	case OpExists:
		return present && v != nil
	case OpEq:
		return present && equal(v, f.Value)
	case OpIn:
		if !present {
			return false
		}
		for _, candidate := range toSlice(f.Value) {
			if equal(v, candidate) {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := v.(string)
		needle, nok := f.Value.(string)
		return ok && nok && strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case OpGt, OpGte, OpLt, OpLte:
		if !present {
			return false
		}
		c, ok := compare(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	default:
		return nil
	}
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values of compatible kinds. Numbers compare across
// integer and float types.
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := stringValue(b)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// stringValue accepts named string types such as geocell.Cell.
func stringValue(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
