// Package query describes what to read from a store: the primary table, a
// predicate, orderings, offset/limit bounds and a chain of association
// joins.
//
// A Descriptor is plain data consumed by store.Execute. Relation is the
// builder that produces Descriptors from association names and order
// strings, reporting configuration errors at build time.
package query

import (
	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/schema"
)

// Descriptor is a fully resolved query.
//
// Execution order is fixed: joins, predicate filter, projection to the
// primary table, ordering, offset, limit.
type Descriptor struct {
	Table     string
	Predicate predicate.Node // nil matches every row
	Orderings []Ordering
	Offset    int
	Limit     *int // nil means unbounded
	Joins     []JoinSpec
}

// Where conjoins p with any existing predicate.
func (d *Descriptor) Where(p predicate.Node) {
	d.Predicate = predicate.Conjoin(d.Predicate, p)
}

// SetLimit bounds the result to n rows.
func (d *Descriptor) SetLimit(n int) {
	d.Limit = &n
}

// Tables returns the primary table followed by every joined table in join
// order, without duplicates.
func (d Descriptor) Tables() []string {
	tables := []string{d.Table}
	seen := map[string]bool{d.Table: true}
	for _, j := range d.Joins {
		for _, hop := range j.Hops(d.Table) {
			if !seen[hop.Table] {
				seen[hop.Table] = true
				tables = append(tables, hop.Table)
			}
		}
	}
	return tables
}

// JoinSpec is one entry of a join chain: a single association, or a
// two-hop chain From then To where To is declared on From's target table.
type JoinSpec struct {
	From schema.Association
	To   *schema.Association
}

// Hop is one resolved inner join. The accumulated rows are keyed by
// LeftTable.LeftColumn and the rows of Table by Table.RightColumn.
type Hop struct {
	Table       string
	LeftTable   string
	LeftColumn  string
	RightColumn string
}

// Hops resolves the join keys for each association in the spec, starting
// from the primary table. The second hop of a chain rejoins against the
// first hop's table.
func (j JoinSpec) Hops(primary string) []Hop {
	hops := []Hop{hopFor(primary, j.From)}
	if j.To != nil {
		hops = append(hops, hopFor(j.From.Table, *j.To))
	}
	return hops
}

func hopFor(prev string, a schema.Association) Hop {
	if a.Kind == schema.HasMany {
		return Hop{Table: a.Table, LeftTable: prev, LeftColumn: attr.IDKey, RightColumn: a.ForeignKey}
	}
	return Hop{Table: a.Table, LeftTable: prev, LeftColumn: a.ForeignKey, RightColumn: attr.IDKey}
}
