package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/schema"
)

func blog(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	require.NoError(t, s.HasMany("posts", "comments"))
	require.NoError(t, s.BelongsTo("posts", "author"))
	require.NoError(t, s.BelongsTo("comments", "user"))
	return s
}

// stubSource records the descriptor it was asked to execute.
type stubSource struct {
	got  Descriptor
	rows []attr.Map
	err  error
}

func (s *stubSource) Execute(d Descriptor) ([]attr.Map, error) {
	s.got = d
	return s.rows, s.err
}

func TestParseOrder(t *testing.T) {
	got, err := ParseOrder("name, created_at DESC,score asc")
	require.NoError(t, err)
	assert.Equal(t, []Ordering{
		{Field: "name", Direction: Asc},
		{Field: "created_at", Direction: Desc},
		{Field: "score", Direction: Asc},
	}, got)
	assert.Equal(t, "name asc, created_at desc, score asc", FormatOrder(got))
}

func TestParseOrder_Errors(t *testing.T) {
	for _, spec := range []string{"", "name,", "name sideways", "a b c"} {
		t.Run(spec, func(t *testing.T) {
			_, err := ParseOrder(spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
		})
	}
}

func TestSortRows_Descending(t *testing.T) {
	rows := []attr.Map{{"y": attr.Int(3)}, {"y": attr.Int(4)}}
	SortRows(rows, []Ordering{{Field: "y", Direction: Desc}})
	assert.Equal(t, []attr.Map{{"y": attr.Int(4)}, {"y": attr.Int(3)}}, rows)
}

func TestSortRows_NilSortsLastInEitherDirection(t *testing.T) {
	for _, dir := range []Direction{Asc, Desc} {
		t.Run(dir.String(), func(t *testing.T) {
			rows := []attr.Map{{"y": attr.Null{}}, {"y": attr.Int(3)}, {}, {"y": attr.Int(4)}}
			SortRows(rows, []Ordering{{Field: "y", Direction: dir}})

			assert.False(t, attr.IsNil(rows[0]["y"]))
			assert.False(t, attr.IsNil(rows[1]["y"]))
			assert.True(t, attr.IsNil(rows[2]["y"]))
			assert.True(t, attr.IsNil(rows[3]["y"]))
		})
	}
}

func TestCompareRows_FirstDifferingFieldDecides(t *testing.T) {
	orderings := []Ordering{{Field: "a", Direction: Asc}, {Field: "b", Direction: Desc}}

	a := attr.Map{"a": attr.Int(1), "b": attr.Int(1)}
	b := attr.Map{"a": attr.Int(1), "b": attr.Int(2)}
	c := attr.Map{"a": attr.Int(2), "b": attr.Int(9)}

	assert.Equal(t, 1, CompareRows(a, b, orderings), "b desc breaks the tie")
	assert.Equal(t, -1, CompareRows(b, c, orderings), "a decides before b is consulted")
	assert.Equal(t, 0, CompareRows(a, a, orderings))
}

func TestSortRows_StableForEqualKeys(t *testing.T) {
	rows := []attr.Map{
		{"k": attr.Int(1), "n": attr.String("first")},
		{"k": attr.Int(0), "n": attr.String("zero")},
		{"k": attr.Int(1), "n": attr.String("second")},
	}
	SortRows(rows, []Ordering{{Field: "k"}})
	assert.Equal(t, attr.String("zero"), rows[0]["n"])
	assert.Equal(t, attr.String("first"), rows[1]["n"])
	assert.Equal(t, attr.String("second"), rows[2]["n"])
}

func TestJoinSpec_Hops(t *testing.T) {
	s := blog(t)
	comments, _ := s.Association("posts", "comments")
	author, _ := s.Association("posts", "author")
	user, _ := s.Association("comments", "user")

	assert.Equal(t, []Hop{{Table: "comments", LeftTable: "posts", LeftColumn: "id", RightColumn: "post_id"}},
		JoinSpec{From: comments}.Hops("posts"))
	assert.Equal(t, []Hop{{Table: "authors", LeftTable: "posts", LeftColumn: "author_id", RightColumn: "id"}},
		JoinSpec{From: author}.Hops("posts"))

	chain := JoinSpec{From: comments, To: &user}.Hops("posts")
	require.Len(t, chain, 2)
	assert.Equal(t, Hop{Table: "users", LeftTable: "comments", LeftColumn: "user_id", RightColumn: "id"}, chain[1])
}

func TestRelation_WhereMapConjoins(t *testing.T) {
	d, err := From(nil, nil, "things").
		Where(map[string]any{"x": 2}).
		Where(predicate.Field("things", "y").NotEq(nil)).
		Descriptor()
	require.NoError(t, err)
	assert.Equal(t, "(things.x = 2 AND things.y != null)", d.Predicate.String())
}

func TestRelation_Bounds(t *testing.T) {
	d, err := From(nil, nil, "things").Order("y desc").Offset(1).Limit(1).Descriptor()
	require.NoError(t, err)

	assert.Equal(t, 1, d.Offset)
	require.NotNil(t, d.Limit)
	assert.Equal(t, 1, *d.Limit)
	assert.Equal(t, []Ordering{{Field: "y", Direction: Desc}}, d.Orderings)
}

func TestRelation_Joins(t *testing.T) {
	d, err := From(nil, blog(t), "posts").
		Joins("author").
		JoinsChain("comments", "user").
		Where(predicate.Field("users", "name").Eq("kim")).
		Descriptor()
	require.NoError(t, err)

	require.Len(t, d.Joins, 2)
	assert.Equal(t, "author", d.Joins[0].From.Name)
	assert.Equal(t, "user", d.Joins[1].To.Name)
	assert.Equal(t, []string{"posts", "authors", "comments", "users"}, d.Tables())
}

func TestRelation_ConfigErrorsAreSticky(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Relation) *Relation
	}{
		{"bad order", func(r *Relation) *Relation { return r.Order("name upward") }},
		{"unknown association", func(r *Relation) *Relation { return r.Joins("tags") }},
		{"unknown chained association", func(r *Relation) *Relation { return r.JoinsChain("comments", "likes") }},
		{"chain without first association", func(r *Relation) *Relation { return r.JoinsChain("", "user") }},
		{"predicate over unjoined table", func(r *Relation) *Relation {
			return r.Where(predicate.Field("comments", "body").Eq("x"))
		}},
		{"unsupported where", func(r *Relation) *Relation { return r.Where(42) }},
		{"negative limit", func(r *Relation) *Relation { return r.Limit(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{}
			r := tt.build(From(src, blog(t), "posts")).Order("id")

			_, err := r.Descriptor()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)

			_, err = r.All()
			assert.ErrorIs(t, err, ErrConfig)
			assert.Empty(t, src.got.Table, "source must not run for a broken relation")
		})
	}
}

func TestRelation_JoinsWithoutSchema(t *testing.T) {
	_, err := From(nil, nil, "posts").Joins("comments").Descriptor()
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRelation_Helpers(t *testing.T) {
	src := &stubSource{rows: []attr.Map{{"id": attr.Int(1)}, {"id": attr.Int(2)}}}
	r := From(src, nil, "things").Where(attr.Map{"kind": attr.String("a")})

	first, err := r.First()
	require.NoError(t, err)
	assert.Equal(t, attr.Int(1), first.ID())

	last, err := r.Last()
	require.NoError(t, err)
	assert.Equal(t, attr.Int(2), last.ID())

	n, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	empty, err := r.Empty()
	require.NoError(t, err)
	assert.False(t, empty)

	assert.Equal(t, "things", src.got.Table)
	assert.Equal(t, `things.kind = "a"`, src.got.Predicate.String())
}

func TestRelation_HelpersOnEmptyResult(t *testing.T) {
	src := &stubSource{}
	r := From(src, nil, "things")

	first, err := r.First()
	require.NoError(t, err)
	assert.Nil(t, first)

	empty, err := r.Empty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestRelation_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := From(&stubSource{err: boom}, nil, "things").All()
	assert.ErrorIs(t, err, boom)
}
