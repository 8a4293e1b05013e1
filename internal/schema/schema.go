// Package schema holds the association metadata that query joins resolve
// against.
//
// A Schema maps each table to the associations it declares. An association
// is either has_many (the target table carries a foreign key back to the
// owner) or belongs_to (the owner carries a foreign key to the target).
// Schemas are built in Go with Add, or loaded from CUE with Load/Compile.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jinzhu/inflection"
)

// Kind is the direction of an association.
type Kind string

const (
	// HasMany joins the owner's id to the target's foreign key.
	HasMany Kind = "has_many"
	// BelongsTo joins the owner's foreign key to the target's id.
	BelongsTo Kind = "belongs_to"
)

// Association describes one declared relationship.
type Association struct {
	Owner      string // table declaring the association
	Name       string // association name, e.g. "comments" or "author"
	Kind       Kind
	Table      string // target table
	ForeignKey string // column holding the reference
}

func (a Association) String() string {
	return fmt.Sprintf("%s.%s (%s %s via %s)", a.Owner, a.Name, a.Kind, a.Table, a.ForeignKey)
}

// withDefaults fills Table and ForeignKey from naming conventions:
//
//	has_many:   table = name,         fk = singular(owner) + "_id"
//	belongs_to: table = plural(name), fk = name + "_id"
func (a Association) withDefaults() Association {
	switch a.Kind {
	case HasMany:
		if a.Table == "" {
			a.Table = a.Name
		}
		if a.ForeignKey == "" {
			a.ForeignKey = inflection.Singular(a.Owner) + "_id"
		}
	case BelongsTo:
		if a.Table == "" {
			a.Table = inflection.Plural(a.Name)
		}
		if a.ForeignKey == "" {
			a.ForeignKey = a.Name + "_id"
		}
	}
	return a
}

// Schema is a set of tables and their associations.
//
// Schema is not safe for concurrent mutation; build it once and share it
// read-only.
type Schema struct {
	tables map[string]map[string]Association
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{tables: make(map[string]map[string]Association)}
}

// AddTable declares a table with no associations. Adding an existing table
// is a no-op.
func (s *Schema) AddTable(name string) {
	if _, ok := s.tables[name]; !ok {
		s.tables[name] = make(map[string]Association)
	}
}

// Add declares an association, filling in conventional table and foreign
// key names where they are empty. The owner and target tables are declared
// implicitly.
func (s *Schema) Add(a Association) error {
	if a.Owner == "" || a.Name == "" {
		return fmt.Errorf("add association: owner and name are required")
	}
	if a.Kind != HasMany && a.Kind != BelongsTo {
		return fmt.Errorf("add association %s.%s: unknown kind %q", a.Owner, a.Name, a.Kind)
	}

	a = a.withDefaults()
	s.AddTable(a.Owner)
	s.AddTable(a.Table)
	if _, dup := s.tables[a.Owner][a.Name]; dup {
		return fmt.Errorf("add association %s.%s: already declared", a.Owner, a.Name)
	}
	s.tables[a.Owner][a.Name] = a
	return nil
}

// HasMany declares owner has_many name with conventional naming.
func (s *Schema) HasMany(owner, name string) error {
	return s.Add(Association{Owner: owner, Name: name, Kind: HasMany})
}

// BelongsTo declares owner belongs_to name with conventional naming.
func (s *Schema) BelongsTo(owner, name string) error {
	return s.Add(Association{Owner: owner, Name: name, Kind: BelongsTo})
}

// Association looks up an association declared on owner.
func (s *Schema) Association(owner, name string) (Association, bool) {
	assocs, ok := s.tables[owner]
	if !ok {
		return Association{}, false
	}
	a, ok := assocs[name]
	return a, ok
}

// Associations returns owner's associations sorted by name.
func (s *Schema) Associations(owner string) []Association {
	assocs := s.tables[owner]
	out := make([]Association, 0, len(assocs))
	for _, a := range assocs {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y Association) int {
		return strings.Compare(x.Name, y.Name)
	})
	return out
}

// HasTable reports whether the table has been declared.
func (s *Schema) HasTable(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// Tables returns all declared table names in sorted order.
func (s *Schema) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
