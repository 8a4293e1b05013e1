package predicate

import (
	"github.com/roach88/shelf/internal/attr"
)

// Expr wraps a Node with fluent combinators. Expr itself implements Node.
type Expr struct {
	Node
}

// Field returns an expression reading table.column.
func Field(table, column string) Expr {
	return Expr{FieldRef{Table: table, Column: column}}
}

// Lit returns a literal expression. v is converted with attr.Of; a Go nil
// becomes attr.Null.
func Lit(v any) Expr {
	return Expr{literal(v)}
}

// Wrap lifts a Node into an Expr.
func Wrap(n Node) Expr {
	if e, ok := n.(Expr); ok {
		return e
	}
	return Expr{n}
}

// Eq builds Equal{e, v}.
func (e Expr) Eq(v any) Expr {
	return Expr{Equal{Left: e.Node, Right: toNode(v)}}
}

// NotEq builds NotEqual{e, v}.
func (e Expr) NotEq(v any) Expr {
	return Expr{NotEqual{Left: e.Node, Right: toNode(v)}}
}

// And builds And{e, v}.
func (e Expr) And(v any) Expr {
	return Expr{And{Left: e.Node, Right: toNode(v)}}
}

// Or builds Or{e, v}.
func (e Expr) Or(v any) Expr {
	return Expr{Or{Left: e.Node, Right: toNode(v)}}
}

// In builds In{e, v}. v is typically a slice, coerced into a List literal.
func (e Expr) In(v any) Expr {
	return Expr{In{Left: e.Node, Right: toNode(v)}}
}

// toNode coerces an operand into a Node. Nodes pass through (unwrapping
// Expr); everything else becomes a Literal.
func toNode(v any) Node {
	switch n := v.(type) {
	case Expr:
		return n.Node
	case Node:
		return n
	}
	return literal(v)
}

func literal(v any) Literal {
	if v == nil {
		return Literal{Val: attr.Null{}}
	}
	return Literal{Val: attr.Of(v)}
}

// EqualsAll builds a conjunction of table.key == value for every entry of
// fields, in sorted key order. It returns nil for an empty map.
func EqualsAll(table string, fields attr.Map) Node {
	var node Node
	for _, k := range fields.SortedKeys() {
		eq := Equal{Left: FieldRef{Table: table, Column: k}, Right: Literal{Val: fields[k]}}
		node = Conjoin(node, eq)
	}
	return node
}
