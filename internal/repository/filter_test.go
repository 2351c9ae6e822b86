package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKey(t *testing.T) {
	field, op := ParseKey("amount__gte")
	assert.Equal(t, "amount", field)
	assert.Equal(t, OpGte, op)

	field, op = ParseKey("status")
	assert.Equal(t, "status", field)
	assert.Equal(t, OpEq, op)

	// an unrecognized suffix is not an operator, so the whole key is the field.
	field, op = ParseKey("weird__suffix")
	assert.Equal(t, "weird__suffix", field)
	assert.Equal(t, OpEq, op)
}

func TestWhereClause(t *testing.T) {
	clause, args := WhereClause([]Filter{
		Eq("partner_id", "p1"),
		{Field: "amount", Op: OpGte, Value: 10},
	}, 0)
	assert.Equal(t, ` WHERE "partner_id" = $1 AND "amount" >= $2`, clause)
	assert.Equal(t, []interface{}{"p1", 10}, args)
}

func TestWhereClauseEmpty(t *testing.T) {
	clause, args := WhereClause(nil, 0)
	assert.Empty(t, clause)
	assert.Nil(t, args)
}

func TestWhereClauseOffset(t *testing.T) {
	clause, args := WhereClause([]Filter{Eq("id", "x")}, 2)
	assert.Equal(t, ` WHERE "id" = $3`, clause)
	assert.Equal(t, []interface{}{"x"}, args)
}

func TestOrderClauseDefault(t *testing.T) {
	assert.Equal(t, " ORDER BY created_at DESC", OrderClause(nil))
}

func TestOrderClauseExplicit(t *testing.T) {
	assert.Equal(t, ` ORDER BY "amount" ASC`, OrderClause(&Sort{Field: "amount"}))
	assert.Equal(t, ` ORDER BY "amount" DESC`, OrderClause(&Sort{Field: "amount", Desc: true}))
}

func TestLimitClauseDefaultsAndCaps(t *testing.T) {
	clause, args := LimitClause(Pagination{}, 0)
	assert.Equal(t, " LIMIT $1 OFFSET $2", clause)
	assert.Equal(t, []interface{}{50, 0}, args)

	_, args = LimitClause(Pagination{Limit: 10000, Skip: 5}, 0)
	assert.Equal(t, []interface{}{50, 5}, args)

	_, args = LimitClause(Pagination{Limit: 100, Skip: 5}, 0)
	assert.Equal(t, []interface{}{100, 5}, args)
}

func TestFiltersFromMap(t *testing.T) {
	filters := FiltersFromMap(map[string]interface{}{"status__in": []string{"a", "b"}})
	assert.Len(t, filters, 1)
	assert.Equal(t, "status", filters[0].Field)
	assert.Equal(t, OpIn, filters[0].Op)
}
