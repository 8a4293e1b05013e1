package predicate

import (
	"fmt"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/roach88/shelf/internal/attr"
)

// ParseError reports a filter expression that cannot be turned into a
// predicate tree.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse filter %q: %s", e.Input, e.Message)
}

// Parse converts a textual filter into a predicate tree.
//
// The grammar is the expression subset of expr-lang that maps onto Node:
//
//	title == "draft"                 bare identifiers read defaultTable
//	authors.name != nil              table.column references
//	id in [1, 2, 3]                  list membership
//	a == 1 and (b == 2 or c == 3)    and/&&, or/||, parentheses
//	not (a == 1)                     negated equality only
//
// Anything else (arithmetic, calls, comparisons other than equality) is a
// ParseError.
func Parse(input, defaultTable string) (Node, error) {
	tree, err := parser.Parse(input)
	if err != nil {
		return nil, &ParseError{Input: input, Message: err.Error()}
	}

	c := &converter{input: input, table: defaultTable}
	return c.node(tree.Node)
}

// converter translates expr-lang AST nodes.
type converter struct {
	input string
	table string
}

func (c *converter) fail(format string, args ...any) error {
	return &ParseError{Input: c.input, Message: fmt.Sprintf(format, args...)}
}

func (c *converter) node(n ast.Node) (Node, error) {
	switch v := n.(type) {
	case *ast.BinaryNode:
		return c.binary(v)
	case *ast.UnaryNode:
		return c.unary(v)
	case *ast.IdentifierNode:
		if c.table == "" {
			return nil, c.fail("bare field %q needs a table", v.Value)
		}
		return FieldRef{Table: c.table, Column: v.Value}, nil
	case *ast.MemberNode:
		return c.member(v)
	case *ast.NilNode:
		return Literal{Val: attr.Null{}}, nil
	case *ast.BoolNode:
		return Literal{Val: attr.Bool(v.Value)}, nil
	case *ast.IntegerNode:
		return Literal{Val: attr.Int(v.Value)}, nil
	case *ast.FloatNode:
		return Literal{Val: attr.Float(v.Value)}, nil
	case *ast.StringNode:
		return Literal{Val: attr.String(v.Value)}, nil
	case *ast.ArrayNode:
		return c.array(v)
	default:
		return nil, c.fail("unsupported expression %T", n)
	}
}

func (c *converter) binary(n *ast.BinaryNode) (Node, error) {
	left, err := c.node(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.node(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "==":
		return Equal{Left: left, Right: right}, nil
	case "!=":
		return NotEqual{Left: left, Right: right}, nil
	case "and", "&&":
		return And{Left: left, Right: right}, nil
	case "or", "||":
		return Or{Left: left, Right: right}, nil
	case "in":
		return In{Left: left, Right: right}, nil
	default:
		return nil, c.fail("unsupported operator %q", n.Operator)
	}
}

func (c *converter) unary(n *ast.UnaryNode) (Node, error) {
	switch n.Operator {
	case "-":
		switch v := n.Node.(type) {
		case *ast.IntegerNode:
			return Literal{Val: attr.Int(-v.Value)}, nil
		case *ast.FloatNode:
			return Literal{Val: attr.Float(-v.Value)}, nil
		}
		return nil, c.fail("unary minus applies to numbers only")
	case "not", "!":
		inner, err := c.node(n.Node)
		if err != nil {
			return nil, err
		}
		switch v := inner.(type) {
		case Equal:
			return NotEqual(v), nil
		case NotEqual:
			return Equal(v), nil
		}
		return nil, c.fail("negation applies to equality tests only, got %s", inner)
	default:
		return nil, c.fail("unsupported unary operator %q", n.Operator)
	}
}

func (c *converter) member(n *ast.MemberNode) (Node, error) {
	table, ok := n.Node.(*ast.IdentifierNode)
	if !ok {
		return nil, c.fail("field references must be table.column")
	}
	column, ok := n.Property.(*ast.StringNode)
	if !ok {
		return nil, c.fail("field references must be table.column")
	}
	return FieldRef{Table: table.Value, Column: column.Value}, nil
}

func (c *converter) array(n *ast.ArrayNode) (Node, error) {
	list := make(attr.List, 0, len(n.Nodes))
	for _, elem := range n.Nodes {
		node, err := c.node(elem)
		if err != nil {
			return nil, err
		}
		lit, ok := node.(Literal)
		if !ok {
			return nil, c.fail("list elements must be literals, got %s", node)
		}
		list = append(list, lit.Val)
	}
	return Literal{Val: list}, nil
}
