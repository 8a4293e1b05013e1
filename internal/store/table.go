package store

import (
	"slices"

	"github.com/roach88/shelf/internal/attr"
)

// backend owns the tables of one store.
type backend interface {
	// table returns the named table, creating it on first access.
	table(name string) (table, error)
	// tableNames lists the tables the backend knows about.
	tableNames() ([]string, error)
}

// table stores rows under their id key (attr.Key of the id) and remembers
// insertion order.
type table interface {
	get(key string) (attr.Map, bool, error)
	// put stores row under key, appending id to the table order when the
	// key is new.
	put(key string, id attr.Value, row attr.Map) error
	remove(key string) error
	// rows returns every row in table order.
	rows() ([]attr.Map, error)
	// nextID allocates an identifier from the table's generator.
	nextID() (*attr.StoreID, error)
	// generator exposes the allocator state for dumps.
	generator() *attr.Generator
	// resolution returns the final value an unresolved identifier issued
	// by this table was resolved to.
	resolution(seq int64) (attr.Value, bool)
	// resolve records that the identifier with seq now has value.
	resolve(seq int64, value attr.Value) error
}

// memoryBackend keeps tables in process memory.
type memoryBackend struct {
	tables map[string]*memoryTable
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{tables: make(map[string]*memoryTable)}
}

func (b *memoryBackend) table(name string) (table, error) {
	t, ok := b.tables[name]
	if !ok {
		t = &memoryTable{
			data:     make(map[string]attr.Map),
			gen:      attr.NewGenerator(),
			resolved: make(map[int64]attr.Value),
		}
		b.tables[name] = t
	}
	return t, nil
}

func (b *memoryBackend) tableNames() ([]string, error) {
	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

type memoryTable struct {
	order    []string
	data     map[string]attr.Map
	gen      *attr.Generator
	resolved map[int64]attr.Value
}

func (t *memoryTable) get(key string) (attr.Map, bool, error) {
	row, ok := t.data[key]
	return row, ok, nil
}

func (t *memoryTable) put(key string, _ attr.Value, row attr.Map) error {
	if _, ok := t.data[key]; !ok {
		t.order = append(t.order, key)
	}
	t.data[key] = row
	return nil
}

func (t *memoryTable) remove(key string) error {
	if _, ok := t.data[key]; !ok {
		return nil
	}
	delete(t.data, key)
	t.order = slices.DeleteFunc(t.order, func(k string) bool { return k == key })
	return nil
}

func (t *memoryTable) rows() ([]attr.Map, error) {
	out := make([]attr.Map, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.data[key])
	}
	return out, nil
}

func (t *memoryTable) nextID() (*attr.StoreID, error) {
	return t.gen.Next(), nil
}

func (t *memoryTable) generator() *attr.Generator {
	return t.gen
}

func (t *memoryTable) resolution(seq int64) (attr.Value, bool) {
	v, ok := t.resolved[seq]
	return v, ok
}

func (t *memoryTable) resolve(seq int64, value attr.Value) error {
	t.resolved[seq] = value
	return nil
}
