package predicate

import (
	"fmt"

	"github.com/roach88/shelf/internal/attr"
)

// Node is a predicate expression evaluated against a joined row.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	// Value evaluates the node against a row.
	Value(row attr.View) attr.Value
	// String renders the node for logs and diagnostics.
	String() string

	predicateNode() // Marker method - seals interface to this package
}

// Literal is a constant operand.
type Literal struct {
	Val attr.Value
}

func (Literal) predicateNode() {}

// Value returns the literal value regardless of row.
func (n Literal) Value(attr.View) attr.Value {
	return n.Val
}

func (n Literal) String() string {
	switch n.Val.(type) {
	case attr.String:
		b, err := attr.MarshalCanonical(n.Val)
		if err == nil {
			return string(b)
		}
	}
	return attr.Format(n.Val)
}

// FieldRef reads a column of one table from a joined row.
type FieldRef struct {
	Table  string
	Column string
}

func (FieldRef) predicateNode() {}

// Value returns row[Table][Column], or nil if either is missing.
func (n FieldRef) Value(row attr.View) attr.Value {
	rec, ok := row[n.Table]
	if !ok {
		return nil
	}
	return rec[n.Column]
}

func (n FieldRef) String() string {
	return n.Table + "." + n.Column
}

// And is a conjunction. It returns Left when Left is falsy, otherwise Right.
type And struct {
	Left, Right Node
}

func (And) predicateNode() {}

// Value evaluates Right only when Left is truthy.
func (n And) Value(row attr.View) attr.Value {
	l := n.Left.Value(row)
	if !attr.Truthy(l) {
		return l
	}
	return n.Right.Value(row)
}

func (n And) String() string {
	return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
}

// Or is a disjunction. It returns Left when Left is truthy, otherwise Right.
type Or struct {
	Left, Right Node
}

func (Or) predicateNode() {}

// Value evaluates Right only when Left is falsy.
func (n Or) Value(row attr.View) attr.Value {
	l := n.Left.Value(row)
	if attr.Truthy(l) {
		return l
	}
	return n.Right.Value(row)
}

func (n Or) String() string {
	return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
}

// Equal tests its operands with attr.Equal.
type Equal struct {
	Left, Right Node
}

func (Equal) predicateNode() {}

// Value returns Bool(true) when both operands are equal.
func (n Equal) Value(row attr.View) attr.Value {
	return attr.Bool(attr.Equal(n.Left.Value(row), n.Right.Value(row)))
}

func (n Equal) String() string {
	return fmt.Sprintf("%s = %s", n.Left, n.Right)
}

// NotEqual is the negation of Equal.
type NotEqual struct {
	Left, Right Node
}

func (NotEqual) predicateNode() {}

// Value returns Bool(true) when the operands differ.
func (n NotEqual) Value(row attr.View) attr.Value {
	return attr.Bool(!attr.Equal(n.Left.Value(row), n.Right.Value(row)))
}

func (n NotEqual) String() string {
	return fmt.Sprintf("%s != %s", n.Left, n.Right)
}

// In tests whether Left is an element of the List that Right evaluates to.
// A Right operand that is not a List never contains anything.
type In struct {
	Left, Right Node
}

func (In) predicateNode() {}

// Value returns Bool(true) when the left value is a member of the right list.
func (n In) Value(row attr.View) attr.Value {
	list, ok := n.Right.Value(row).(attr.List)
	if !ok {
		return attr.Bool(false)
	}
	needle := n.Left.Value(row)
	for _, elem := range list {
		if attr.Equal(needle, elem) {
			return attr.Bool(true)
		}
	}
	return attr.Bool(false)
}

func (n In) String() string {
	return fmt.Sprintf("%s IN %s", n.Left, n.Right)
}

// Matches reports whether node is truthy for row. A nil node matches
// every row.
func Matches(node Node, row attr.View) bool {
	if node == nil {
		return true
	}
	return attr.Truthy(node.Value(row))
}

// Conjoin combines two predicates with And. A nil side yields the other,
// so conjoining onto an empty predicate never wraps it.
func Conjoin(existing, added Node) Node {
	switch {
	case existing == nil:
		return added
	case added == nil:
		return existing
	}
	return And{Left: existing, Right: added}
}
