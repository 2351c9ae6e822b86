package repository

import (
	"fmt"
	"strings"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq        Op = "eq"
	OpIn        Op = "in"
	OpNotIn     Op = "notin"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpIContains Op = "icontains"
	OpIsNull    Op = "isnull"
)

// Filter is one predicate of the form `field` (implicit eq) or
// `field__op` → value, the uniform DSL every repository List method
// accepts.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Eq builds an equality filter.
func Eq(field string, value interface{}) Filter { return Filter{Field: field, Op: OpEq, Value: value} }

// In builds a membership filter.
func In(field string, values interface{}) Filter { return Filter{Field: field, Op: OpIn, Value: values} }

// ParseKey splits a raw DSL key like "amount__gte" into (field, op).
// A key with no `__` suffix is an equality filter.
func ParseKey(key string) (field string, op Op) {
	if idx := strings.LastIndex(key, "__"); idx >= 0 {
		candidate := Op(key[idx+2:])
		switch candidate {
		case OpIn, OpNotIn, OpLt, OpLte, OpGt, OpGte, OpIContains, OpIsNull:
			return key[:idx], candidate
		}
	}
	return key, OpEq
}

// FiltersFromMap builds a Filter slice from a raw `field[__op]` → value map,
// the shape admission handlers decode query parameters into.
func FiltersFromMap(raw map[string]interface{}) []Filter {
	filters := make([]Filter, 0, len(raw))
	for k, v := range raw {
		field, op := ParseKey(k)
		filters = append(filters, Filter{Field: field, Op: op, Value: v})
	}
	return filters
}

// Pagination is a skip/limit window over a result set.
type Pagination struct {
	Skip  int
	Limit int
}

// DefaultPagination caps unbounded list queries.
func DefaultPagination() Pagination { return Pagination{Skip: 0, Limit: 50} }

// Sort orders a result set by one column.
type Sort struct {
	Field string
	Desc  bool
}

// WhereClause renders filters into a `WHERE ...` SQL fragment (empty string
// if there are no filters) plus the positional args, starting numbering at
// argOffset+1 so callers can prepend their own fixed predicates.
func WhereClause(filters []Filter, argOffset int) (clause string, args []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	idx := argOffset
	for _, f := range filters {
		col := quoteIdent(f.Field)
		switch f.Op {
		case OpEq:
			idx++
			parts = append(parts, fmt.Sprintf("%s = $%d", col, idx))
			args = append(args, f.Value)
		case OpIn:
			idx++
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, idx))
			args = append(args, f.Value)
		case OpNotIn:
			idx++
			parts = append(parts, fmt.Sprintf("%s != ALL($%d)", col, idx))
			args = append(args, f.Value)
		case OpLt:
			idx++
			parts = append(parts, fmt.Sprintf("%s < $%d", col, idx))
			args = append(args, f.Value)
		case OpLte:
			idx++
			parts = append(parts, fmt.Sprintf("%s <= $%d", col, idx))
			args = append(args, f.Value)
		case OpGt:
			idx++
			parts = append(parts, fmt.Sprintf("%s > $%d", col, idx))
			args = append(args, f.Value)
		case OpGte:
			idx++
			parts = append(parts, fmt.Sprintf("%s >= $%d", col, idx))
			args = append(args, f.Value)
		case OpIContains:
			idx++
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, idx))
			args = append(args, fmt.Sprintf("%%%v%%", f.Value))
		case OpIsNull:
			if truthy, ok := f.Value.(bool); ok && truthy {
				parts = append(parts, fmt.Sprintf("%s IS NULL", col))
			} else {
				parts = append(parts, fmt.Sprintf("%s IS NOT NULL", col))
			}
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// OrderClause renders a Sort into an `ORDER BY ...` fragment, defaulting to
// `created_at DESC` when sort is nil.
func OrderClause(sort *Sort) string {
	if sort == nil {
		return " ORDER BY created_at DESC"
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", quoteIdent(sort.Field), dir)
}

// LimitClause renders a Pagination into a `LIMIT ... OFFSET ...` fragment.
func LimitClause(p Pagination, argOffset int) (clause string, args []interface{}) {
	limit := p.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", argOffset+1, argOffset+2), []interface{}{limit, p.Skip}
}

// quoteIdent defends against a field name escaping into raw SQL; callers
// only ever pass field names from a fixed allow-listed set of Go struct
// tags, never request-controlled strings, but we quote unconditionally.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
