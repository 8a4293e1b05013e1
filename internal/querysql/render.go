// Package querysql renders query descriptors as parameterized SQL text.
//
// The output is diagnostic: it shows what a descriptor asks for in a form
// people already read fluently (debug logs, `shelf query --explain`). It is
// never executed; stores evaluate descriptors directly.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/query"
)

// Render converts a descriptor to parameterized SQL.
// Returns (sql, params, error).
//
// Values are never interpolated; every literal becomes a ? placeholder.
// Nil-like values sort last in both directions, which SQL spells NULLS LAST.
func Render(d query.Descriptor) (string, []any, error) {
	if d.Table == "" {
		return "", nil, fmt.Errorf("cannot render descriptor without a table")
	}

	r := &renderer{}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s.* FROM %s", d.Table, d.Table)

	for _, j := range d.Joins {
		for _, hop := range j.Hops(d.Table) {
			fmt.Fprintf(&b, " INNER JOIN %s ON %s.%s = %s.%s",
				hop.Table, hop.LeftTable, hop.LeftColumn, hop.Table, hop.RightColumn)
		}
	}

	if d.Predicate != nil {
		where, err := r.node(d.Predicate)
		if err != nil {
			return "", nil, fmt.Errorf("render predicate: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(d.Orderings) > 0 {
		parts := make([]string, len(d.Orderings))
		for i, o := range d.Orderings {
			parts[i] = fmt.Sprintf("%s.%s %s NULLS LAST", d.Table, o.Field, strings.ToUpper(o.Direction.String()))
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	switch {
	case d.Limit != nil:
		b.WriteString(" LIMIT ?")
		r.params = append(r.params, int64(*d.Limit))
	case d.Offset > 0:
		// SQLite requires a LIMIT before OFFSET; -1 means unbounded.
		b.WriteString(" LIMIT -1")
	}
	if d.Offset > 0 {
		b.WriteString(" OFFSET ?")
		r.params = append(r.params, int64(d.Offset))
	}

	return b.String(), r.params, nil
}

// renderer accumulates placeholder values in render order.
type renderer struct {
	params []any
}

func (r *renderer) node(n predicate.Node) (string, error) {
	switch v := n.(type) {
	case predicate.Expr:
		return r.node(v.Node)
	case predicate.FieldRef:
		return v.String(), nil
	case predicate.Literal:
		param, err := valueToParam(v.Val)
		if err != nil {
			return "", err
		}
		r.params = append(r.params, param)
		return "?", nil
	case predicate.And:
		return r.binary(v.Left, "AND", v.Right, true)
	case predicate.Or:
		return r.binary(v.Left, "OR", v.Right, true)
	case predicate.Equal:
		if isNullLiteral(v.Right) {
			left, err := r.node(v.Left)
			return left + " IS NULL", err
		}
		return r.binary(v.Left, "=", v.Right, false)
	case predicate.NotEqual:
		if isNullLiteral(v.Right) {
			left, err := r.node(v.Left)
			return left + " IS NOT NULL", err
		}
		return r.binary(v.Left, "!=", v.Right, false)
	case predicate.In:
		return r.in(v)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", n)
	}
}

func (r *renderer) binary(left predicate.Node, op string, right predicate.Node, group bool) (string, error) {
	l, err := r.node(left)
	if err != nil {
		return "", err
	}
	rt, err := r.node(right)
	if err != nil {
		return "", err
	}
	if group {
		return fmt.Sprintf("(%s %s %s)", l, op, rt), nil
	}
	return fmt.Sprintf("%s %s %s", l, op, rt), nil
}

// in expands a literal list into one placeholder per element. A right side
// that is not a list literal never matches.
func (r *renderer) in(n predicate.In) (string, error) {
	left, err := r.node(n.Left)
	if err != nil {
		return "", err
	}

	lit, ok := n.Right.(predicate.Literal)
	if !ok {
		return "", fmt.Errorf("IN requires a literal list, got %s", n.Right)
	}
	list, ok := lit.Val.(attr.List)
	if !ok || len(list) == 0 {
		return "0 = 1", nil
	}

	marks := make([]string, len(list))
	for i, elem := range list {
		param, err := valueToParam(elem)
		if err != nil {
			return "", err
		}
		r.params = append(r.params, param)
		marks[i] = "?"
	}
	return fmt.Sprintf("%s IN (%s)", left, strings.Join(marks, ", ")), nil
}

func isNullLiteral(n predicate.Node) bool {
	if e, ok := n.(predicate.Expr); ok {
		n = e.Node
	}
	lit, ok := n.(predicate.Literal)
	return ok && attr.IsNil(lit.Val)
}

// valueToParam converts an attr.Value to a Go native SQL parameter.
// Lists and maps cannot be used as parameters directly.
func valueToParam(v attr.Value) (any, error) {
	switch val := v.(type) {
	case nil, attr.Null:
		return nil, nil
	case attr.String:
		return string(val), nil
	case attr.Int:
		return int64(val), nil
	case attr.Float:
		return float64(val), nil
	case attr.Bool:
		return bool(val), nil
	case *attr.StoreID:
		if val.Resolved() {
			return valueToParam(val.Value())
		}
		return val.String(), nil
	case attr.List:
		return nil, fmt.Errorf("list cannot be used as SQL parameter directly")
	case attr.Map:
		return nil, fmt.Errorf("map cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
