package predicate

import (
	"fmt"
	"slices"
)

// Tables returns the sorted, de-duplicated table names referenced by
// FieldRefs in the tree.
func Tables(node Node) []string {
	w := &walker{seen: map[string]bool{}}
	w.walk(node)
	slices.Sort(w.tables)
	return w.tables
}

// Validate checks that every FieldRef in the tree names one of the allowed
// tables. It returns one message per offending reference; an empty result
// means the predicate can be evaluated against rows joined over allowed.
//
// Validate is a pure function with no side effects.
func Validate(node Node, allowed []string) []string {
	w := &walker{seen: map[string]bool{}}
	w.walk(node)

	var problems []string
	for _, ref := range w.refs {
		if !slices.Contains(allowed, ref.Table) {
			problems = append(problems, fmt.Sprintf("field %s references table %q which is not part of the query", ref, ref.Table))
		}
	}
	return problems
}

// walker accumulates field references during traversal.
type walker struct {
	seen   map[string]bool
	tables []string
	refs   []FieldRef
}

func (w *walker) walk(node Node) {
	switch n := node.(type) {
	case nil:
		return
	case Expr:
		w.walk(n.Node)
	case FieldRef:
		w.refs = append(w.refs, n)
		if !w.seen[n.Table] {
			w.seen[n.Table] = true
			w.tables = append(w.tables, n.Table)
		}
	case Literal:
	case And:
		w.walk(n.Left)
		w.walk(n.Right)
	case Or:
		w.walk(n.Left)
		w.walk(n.Right)
	case Equal:
		w.walk(n.Left)
		w.walk(n.Right)
	case NotEqual:
		w.walk(n.Left)
		w.walk(n.Right)
	case In:
		w.walk(n.Left)
		w.walk(n.Right)
	}
}
