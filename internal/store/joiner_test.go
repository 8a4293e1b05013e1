package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/shelf/internal/attr"
)

// view builds a joined view from alternating table names and field maps.
func view(parts ...any) attr.View {
	v := attr.View{}
	for i := 0; i < len(parts); i += 2 {
		v[parts[i].(string)] = attr.MapOf(parts[i+1].(map[string]any))
	}
	return v
}

type m = map[string]any

func TestJoinTables_JoinsAllRows(t *testing.T) {
	table1 := []attr.View{
		view("table1", m{"id": 1, "name": "first"}),
		view("table1", m{"id": 2, "name": "second"}),
	}
	table2 := []attr.View{
		view("table2", m{"id": 1, "table1_id": 1}),
		view("table2", m{"id": 2, "table1_id": 1}),
		view("table2", m{"id": 3, "table1_id": 2}),
	}

	got := JoinTables(table1, table2, "table1", "id", "table2", "table1_id")
	want := []attr.View{
		view("table1", m{"id": 1, "name": "first"}, "table2", m{"id": 1, "table1_id": 1}),
		view("table1", m{"id": 1, "name": "first"}, "table2", m{"id": 2, "table1_id": 1}),
		view("table1", m{"id": 2, "name": "second"}, "table2", m{"id": 3, "table1_id": 2}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JoinTables() mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinTables_SkipsNonMatchingRows(t *testing.T) {
	table1 := []attr.View{
		view("table1", m{"id": 1, "name": "first"}),
		view("table1", m{"id": 2, "name": "second"}),
		view("table1", m{"id": 3, "name": "third"}),
	}
	table2 := []attr.View{
		view("table2", m{"id": 1, "table1_id": 1}),
		view("table2", m{"id": 2, "table1_id": 1}),
		view("table2", m{"id": 3, "table1_id": 3}),
	}

	got := JoinTables(table1, table2, "table1", "id", "table2", "table1_id")
	want := []attr.View{
		view("table1", m{"id": 1, "name": "first"}, "table2", m{"id": 1, "table1_id": 1}),
		view("table1", m{"id": 1, "name": "first"}, "table2", m{"id": 2, "table1_id": 1}),
		view("table1", m{"id": 3, "name": "third"}, "table2", m{"id": 3, "table1_id": 3}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JoinTables() mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinTables_NoMatches(t *testing.T) {
	table1 := []attr.View{
		view("table1", m{"id": 1, "name": "first"}),
		view("table1", m{"id": 2, "name": "second"}),
	}
	table2 := []attr.View{
		view("table2", m{"id": 1, "table1_id": 3}),
		view("table2", m{"id": 2, "table1_id": 4}),
	}

	assert.Empty(t, JoinTables(table1, table2, "table1", "id", "table2", "table1_id"))
}

func TestJoinTables_EmptySide(t *testing.T) {
	rows := []attr.View{view("table1", m{"id": 1})}

	assert.Empty(t, JoinTables(nil, rows, "table1", "id", "table1", "id"))
	assert.Empty(t, JoinTables(rows, nil, "table1", "id", "table1", "id"))
}

func TestJoinTables_RejoinsJoinedRows(t *testing.T) {
	table1 := []attr.View{
		view("table1", m{"id": 5, "name": "first"}, "table2", m{"id": 1, "table1_id": 1}),
		view("table1", m{"id": 6, "name": "second"}, "table2", m{"id": 2, "table1_id": 2}),
	}
	table3 := []attr.View{
		view("table3", m{"id": 1, "table2_id": 1}),
		view("table3", m{"id": 2, "table2_id": 2}),
	}

	got := JoinTables(table1, table3, "table2", "id", "table3", "table2_id")
	want := []attr.View{
		view("table1", m{"id": 5, "name": "first"}, "table2", m{"id": 1, "table1_id": 1}, "table3", m{"id": 1, "table2_id": 1}),
		view("table1", m{"id": 6, "name": "second"}, "table2", m{"id": 2, "table1_id": 2}, "table3", m{"id": 2, "table2_id": 2}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JoinTables() mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinTables_DuplicatedLeftKeysRescanGroup(t *testing.T) {
	table1 := []attr.View{
		view("table1", m{"id": 1, "name": "first"}, "table2", m{"id": 1, "table1_id": 1, "table3_id": 1}),
		view("table1", m{"id": 2, "name": "second"}, "table2", m{"id": 2, "table1_id": 2, "table3_id": 1}),
		view("table1", m{"id": 2, "name": "second"}, "table2", m{"id": 2, "table1_id": 2, "table3_id": 2}),
	}
	table3 := []attr.View{
		view("table3", m{"id": 1}),
		view("table3", m{"id": 2}),
	}

	got := JoinTables(table1, table3, "table2", "table3_id", "table3", "id")
	want := []attr.View{
		view("table1", m{"id": 1, "name": "first"}, "table2", m{"id": 1, "table1_id": 1, "table3_id": 1}, "table3", m{"id": 1}),
		view("table1", m{"id": 2, "name": "second"}, "table2", m{"id": 2, "table1_id": 2, "table3_id": 1}, "table3", m{"id": 1}),
		view("table1", m{"id": 2, "name": "second"}, "table2", m{"id": 2, "table1_id": 2, "table3_id": 2}, "table3", m{"id": 2}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JoinTables() mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinTables_ManyToManyKeys(t *testing.T) {
	left := []attr.View{
		view("a", m{"k": 1, "n": "a1"}),
		view("a", m{"k": 1, "n": "a2"}),
	}
	right := []attr.View{
		view("b", m{"k": 1, "n": "b1"}),
		view("b", m{"k": 1, "n": "b2"}),
	}

	got := JoinTables(left, right, "a", "k", "b", "k")
	assert.Len(t, got, 4)
}

func TestJoinTables_SortsUnorderedInput(t *testing.T) {
	left := []attr.View{view("a", m{"id": 3}), view("a", m{"id": 1}), view("a", m{"id": 2})}
	right := []attr.View{view("b", m{"a_id": 2}), view("b", m{"a_id": 3}), view("b", m{"a_id": 1})}

	got := JoinTables(left, right, "a", "id", "b", "a_id")
	want := []attr.View{
		view("a", m{"id": 1}, "b", m{"a_id": 1}),
		view("a", m{"id": 2}, "b", m{"a_id": 2}),
		view("a", m{"id": 3}, "b", m{"a_id": 3}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JoinTables() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, attr.Int(3), left[0]["a"]["id"], "input order is untouched")
}

func TestJoinTables_NilKeysNeverMatch(t *testing.T) {
	left := []attr.View{view("a", m{"id": 1}), view("a", m{})}
	right := []attr.View{view("b", m{"a_id": nil}), view("b", m{"a_id": 1})}

	got := JoinTables(left, right, "a", "id", "b", "a_id")
	assert.Len(t, got, 1)
}

func TestJoinTables_LeavesInputsUntouched(t *testing.T) {
	left := []attr.View{view("a", m{"id": 1})}
	right := []attr.View{view("b", m{"a_id": 1})}

	got := JoinTables(left, right, "a", "id", "b", "a_id")
	assert.Len(t, got, 1)
	assert.Equal(t, view("a", m{"id": 1}), left[0])
	assert.Equal(t, view("b", m{"a_id": 1}), right[0])
	assert.Len(t, got[0], 2)
}
