package query

import (
	"fmt"
	"strings"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/schema"
)

// Source executes descriptors. *store.Store implements it.
type Source interface {
	Execute(d Descriptor) ([]attr.Map, error)
}

// Relation builds a Descriptor step by step.
//
// Builder methods mutate the relation and return it for chaining. The first
// configuration error is kept and reported by Err, Descriptor and every
// execution helper; later builder calls are ignored once an error is set.
type Relation struct {
	source Source
	schema *schema.Schema
	desc   Descriptor
	err    error
}

// From starts a relation over table. sch resolves association names for
// Joins and may be nil when no joins are used.
func From(src Source, sch *schema.Schema, table string) *Relation {
	r := &Relation{source: src, schema: sch, desc: Descriptor{Table: table}}
	if table == "" {
		r.err = configErrorf("from", "table name is required")
	}
	return r
}

// Where adds a condition. cond is a predicate.Node (including
// predicate.Expr) or a field map; a map becomes one equality per key, in
// sorted key order, conjoined with And. Conditions always conjoin with the
// existing predicate.
func (r *Relation) Where(cond any) *Relation {
	if r.err != nil {
		return r
	}

	var node predicate.Node
	switch c := cond.(type) {
	case predicate.Node:
		node = c
	case attr.Map:
		node = predicate.EqualsAll(r.desc.Table, c)
	case map[string]any:
		m, err := attr.From(c)
		if err != nil {
			r.err = configErrorf("where", "%v", err)
			return r
		}
		node = predicate.EqualsAll(r.desc.Table, m.(attr.Map))
	default:
		r.err = configErrorf("where", "unsupported condition type %T", cond)
		return r
	}

	r.desc.Where(node)
	return r
}

// Order appends orderings parsed from spec, e.g. "name, created_at desc".
func (r *Relation) Order(spec string) *Relation {
	if r.err != nil {
		return r
	}
	orderings, err := ParseOrder(spec)
	if err != nil {
		r.err = err
		return r
	}
	r.desc.Orderings = append(r.desc.Orderings, orderings...)
	return r
}

// Limit keeps at most n rows.
func (r *Relation) Limit(n int) *Relation {
	if r.err != nil {
		return r
	}
	if n < 0 {
		r.err = configErrorf("limit", "limit must be non-negative, got %d", n)
		return r
	}
	r.desc.SetLimit(n)
	return r
}

// Offset skips the first n rows.
func (r *Relation) Offset(n int) *Relation {
	if r.err != nil {
		return r
	}
	if n < 0 {
		r.err = configErrorf("offset", "offset must be non-negative, got %d", n)
		return r
	}
	r.desc.Offset = n
	return r
}

// Joins inner-joins the association declared on the primary table.
func (r *Relation) Joins(name string) *Relation {
	if r.err != nil {
		return r
	}
	from, err := r.association(r.desc.Table, name)
	if err != nil {
		r.err = err
		return r
	}
	r.desc.Joins = append(r.desc.Joins, JoinSpec{From: from})
	return r
}

// JoinsChain inner-joins from (declared on the primary table) and then to
// (declared on from's target table).
func (r *Relation) JoinsChain(from, to string) *Relation {
	if r.err != nil {
		return r
	}
	if from == "" {
		r.err = configErrorf("joins", "join chain to %q has no first association", to)
		return r
	}

	first, err := r.association(r.desc.Table, from)
	if err != nil {
		r.err = err
		return r
	}
	spec := JoinSpec{From: first}
	if to != "" {
		second, err := r.association(first.Table, to)
		if err != nil {
			r.err = err
			return r
		}
		spec.To = &second
	}
	r.desc.Joins = append(r.desc.Joins, spec)
	return r
}

func (r *Relation) association(owner, name string) (schema.Association, error) {
	if r.schema == nil {
		return schema.Association{}, configErrorf("joins", "no schema to resolve association %q", name)
	}
	a, ok := r.schema.Association(owner, name)
	if !ok {
		return schema.Association{}, configErrorf("joins", "table %q has no association %q", owner, name)
	}
	return a, nil
}

// Err returns the first configuration error, including predicates that
// reference tables outside the primary and joined tables.
func (r *Relation) Err() error {
	if r.err != nil {
		return r.err
	}
	if problems := predicate.Validate(r.desc.Predicate, r.desc.Tables()); len(problems) > 0 {
		return configErrorf("where", "%s", strings.Join(problems, "; "))
	}
	return nil
}

// Descriptor returns the built descriptor, or the first configuration
// error.
func (r *Relation) Descriptor() (Descriptor, error) {
	if err := r.Err(); err != nil {
		return Descriptor{}, err
	}
	return r.desc, nil
}

// All executes the relation.
func (r *Relation) All() ([]attr.Map, error) {
	d, err := r.Descriptor()
	if err != nil {
		return nil, err
	}
	if r.source == nil {
		return nil, fmt.Errorf("execute %s: relation has no source", d.Table)
	}
	return r.source.Execute(d)
}

// First returns the first row, or nil when the result is empty.
func (r *Relation) First() (attr.Map, error) {
	rows, err := r.All()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Last returns the last row, or nil when the result is empty.
func (r *Relation) Last() (attr.Map, error) {
	rows, err := r.All()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[len(rows)-1], nil
}

// Count returns the number of rows.
func (r *Relation) Count() (int, error) {
	rows, err := r.All()
	return len(rows), err
}

// Empty reports whether the relation has no rows.
func (r *Relation) Empty() (bool, error) {
	n, err := r.Count()
	return n == 0, err
}
