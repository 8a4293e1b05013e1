// Package predicate provides the boolean expression tree used to filter
// query rows and to scope change observers.
//
// Node is a sealed interface using the marker method pattern: only types in
// this package implement it, so evaluators and renderers can switch over the
// full set of node types:
//
//	switch n := node.(type) {
//	case Literal, FieldRef:
//	    // leaves
//	case And, Or, Equal, NotEqual, In:
//	    // binary nodes
//	}
//
// Every node evaluates against a joined row (attr.View) and yields an
// attr.Value. FieldRef reads view[table][column]; a missing table or column
// yields the absent value (nil), never an error. And and Or return operand
// values the way boolean operators do: And returns its left operand when it
// is falsy and its right operand otherwise; Or the reverse. Both
// short-circuit.
//
// Expr wraps a Node with combinators so trees can be built fluently:
//
//	predicate.Field("posts", "status").Eq("published").
//	    And(predicate.Field("authors", "id").In([]int{1, 2}))
//
// Operands that are not nodes are coerced into Literals with attr.Of.
//
// Parse builds the same trees from text ("status == 'published' and
// authors.id in [1, 2]") for command-line filters.
package predicate
