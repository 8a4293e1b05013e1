package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shelf/internal/attr"
)

func row(table string, fields map[string]any) attr.View {
	return attr.View{table: attr.MapOf(fields)}
}

func TestFieldRef_ReadsTableColumn(t *testing.T) {
	r := attr.View{
		"posts":   attr.Map{"title": attr.String("hello")},
		"authors": attr.Map{"name": attr.String("ann")},
	}

	assert.Equal(t, attr.String("hello"), Field("posts", "title").Value(r))
	assert.Equal(t, attr.String("ann"), Field("authors", "name").Value(r))
}

func TestFieldRef_MissingYieldsAbsent(t *testing.T) {
	r := row("posts", map[string]any{"title": "x"})

	assert.Nil(t, Field("posts", "missing").Value(r))
	assert.Nil(t, Field("authors", "name").Value(r))
}

func TestEq(t *testing.T) {
	p := Field("things", "x").Eq(2)

	assert.Equal(t, attr.Bool(true), p.Value(row("things", map[string]any{"x": 2})))
	assert.Equal(t, attr.Bool(false), p.Value(row("things", map[string]any{"x": 1})))
	assert.Equal(t, attr.Bool(false), p.Value(row("things", map[string]any{})))
}

func TestEq_AbsentEqualsNil(t *testing.T) {
	p := Field("things", "x").Eq(nil)
	assert.True(t, Matches(p, row("things", map[string]any{})))
	assert.True(t, Matches(p, attr.View{"things": attr.Map{"x": attr.Null{}}}))
	assert.False(t, Matches(p, row("things", map[string]any{"x": 0})))
}

func TestNotEq(t *testing.T) {
	p := Field("things", "x").NotEq("a")
	assert.True(t, Matches(p, row("things", map[string]any{"x": "b"})))
	assert.False(t, Matches(p, row("things", map[string]any{"x": "a"})))
	assert.True(t, Matches(p, row("things", map[string]any{})), "absent differs from a present literal")
}

func TestAndOr_ReturnOperandValues(t *testing.T) {
	r := row("t", map[string]any{"a": "left", "b": "right"})

	assert.Equal(t, attr.String("right"), Field("t", "a").And(Field("t", "b")).Value(r))
	assert.Equal(t, attr.String("left"), Field("t", "a").Or(Field("t", "b")).Value(r))
	assert.Nil(t, Field("t", "missing").And(Field("t", "b")).Value(r))
	assert.Equal(t, attr.String("right"), Field("t", "missing").Or(Field("t", "b")).Value(r))
}

// probe records whether it was evaluated.
type probe struct {
	Literal
	hit *bool
}

func (p probe) Value(row attr.View) attr.Value {
	*p.hit = true
	return p.Literal.Value(row)
}

func TestAndOr_ShortCircuit(t *testing.T) {
	hit := false
	right := probe{Literal: Literal{Val: attr.Bool(true)}, hit: &hit}

	Lit(false).And(right).Value(nil)
	assert.False(t, hit, "And must not evaluate right when left is falsy")

	Lit(true).Or(right).Value(nil)
	assert.False(t, hit, "Or must not evaluate right when left is truthy")

	Lit(true).And(right).Value(nil)
	assert.True(t, hit)
}

func TestIn(t *testing.T) {
	p := Field("t", "id").In([]int{1, 3})

	assert.True(t, Matches(p, row("t", map[string]any{"id": 3})))
	assert.False(t, Matches(p, row("t", map[string]any{"id": 2})))
	assert.False(t, Matches(p, row("t", map[string]any{})))
}

func TestIn_CoercesAnySliceOperand(t *testing.T) {
	tests := []struct {
		name    string
		operand any
		value   any
	}{
		{"floats", []float64{1.5, 2}, 1.5},
		{"bools", []bool{true}, true},
		{"attribute values", []attr.Int{4, 5}, 5},
		{"array", [2]string{"a", "b"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Expr
			require.NotPanics(t, func() { p = Field("t", "x").In(tt.operand) })
			assert.True(t, Matches(p, row("t", map[string]any{"x": tt.value})))
			assert.False(t, Matches(p, row("t", map[string]any{"x": "missing"})))
		})
	}
}

func TestIn_NonListNeverContains(t *testing.T) {
	p := Field("t", "id").In("1")
	assert.False(t, Matches(p, row("t", map[string]any{"id": "1"})))
}

func TestIn_StoreIDMembership(t *testing.T) {
	id := attr.NewStoreID(4)
	p := Field("t", "owner").In(attr.List{attr.NewStoreID(4), attr.Int(9)})
	assert.True(t, Matches(p, attr.View{"t": attr.Map{"owner": id}}))
}

func TestMatches_NilPredicatePassesEverything(t *testing.T) {
	assert.True(t, Matches(nil, row("t", map[string]any{})))
}

func TestConjoin(t *testing.T) {
	a := Field("t", "a").Eq(1)
	b := Field("t", "b").Eq(2)

	assert.Equal(t, Node(a), Conjoin(nil, a))
	assert.Equal(t, Node(a), Conjoin(a, nil))

	both := Conjoin(a, b)
	require.IsType(t, And{}, both)
	assert.True(t, Matches(both, row("t", map[string]any{"a": 1, "b": 2})))
	assert.False(t, Matches(both, row("t", map[string]any{"a": 1, "b": 3})))
}

func TestEqualsAll(t *testing.T) {
	node := EqualsAll("t", attr.Map{"b": attr.Int(2), "a": attr.Int(1)})
	assert.Equal(t, "(t.a = 1 AND t.b = 2)", node.String())
	assert.Nil(t, EqualsAll("t", attr.Map{}))
}

func TestString(t *testing.T) {
	p := Field("posts", "title").Eq("x").Or(Field("posts", "id").In([]int{1, 2}))
	assert.Equal(t, `(posts.title = "x" OR posts.id IN [1,2])`, p.String())
}

func TestTablesAndValidate(t *testing.T) {
	p := Field("posts", "title").Eq("x").And(Field("authors", "id").NotEq(Field("posts", "author_id")))

	assert.Equal(t, []string{"authors", "posts"}, Tables(p))
	assert.Empty(t, Validate(p, []string{"posts", "authors"}))

	problems := Validate(p, []string{"posts"})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], `"authors"`)
}
