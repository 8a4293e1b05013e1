package store

import (
	"slices"

	"github.com/roach88/shelf/internal/attr"
)

// JoinTables inner-joins two sets of joined views with a sort-merge pass.
//
// The key for a row of a is row[aTable][aCol]; for a row of b it is
// row[bTable][bCol]. Both sides are stably sorted by key with attr.Compare.
// Walking a in order, the b cursor advances past smaller keys for good;
// rows with an equal key are merged (a's tables, then b's) without moving
// the cursor, so a later a row with the same key rescans the same b group.
//
// Rows whose key is nil-like never match. Inputs are not modified; merged
// views share the underlying attribute maps with the inputs.
func JoinTables(a, b []attr.View, aTable, aCol, bTable, bCol string) []attr.View {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	left := sortedByKey(a, aTable, aCol)
	right := sortedByKey(b, bTable, bCol)
	rightKey := func(i int) attr.Value { return right[i][bTable][bCol] }

	var out []attr.View
	cursor := 0
	for _, row := range left {
		key := row[aTable][aCol]
		if attr.IsNil(key) {
			continue
		}

		for cursor < len(right) && attr.Compare(rightKey(cursor), key) < 0 {
			cursor++
		}
		if cursor == len(right) {
			break
		}

		for i := cursor; i < len(right) && attr.Compare(rightKey(i), key) == 0; i++ {
			out = append(out, row.Merge(right[i]))
		}
	}
	return out
}

func sortedByKey(rows []attr.View, table, col string) []attr.View {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(x, y attr.View) int {
		return attr.Compare(x[table][col], y[table][col])
	})
	return sorted
}
