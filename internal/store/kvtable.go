package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/kv"
)

// Key layout for table T:
//
//	T:<id key>    attribute map as canonical JSON
//	T:index       JSON array of ids in table order
//	T:generator   {"next_id": n}
//	T:resolved    {"<seq>": final id} for every resolved temporary id
//	T:next_id     legacy counter holding the last issued id
//
// Row keys that collide with these names are stored as T:~<id key>.
const (
	indexSuffix     = ":index"
	generatorSuffix = ":generator"
	resolvedSuffix  = ":resolved"
	legacySuffix    = ":next_id"
)

var reservedKeys = []string{"index", "generator", "resolved", "next_id"}

// keyLister is implemented by hosts that can enumerate keys.
type keyLister interface {
	Keys(prefix string) ([]string, error)
}

// kvBackend persists tables through a synchronous key-value host.
type kvBackend struct {
	kv     kv.KV
	tables map[string]*kvTable
}

func newKVBackend(store kv.KV) *kvBackend {
	return &kvBackend{kv: store, tables: make(map[string]*kvTable)}
}

func (b *kvBackend) table(name string) (table, error) {
	if t, ok := b.tables[name]; ok {
		return t, nil
	}
	t, err := openKVTable(b.kv, name)
	if err != nil {
		return nil, err
	}
	b.tables[name] = t
	return t, nil
}

// tableNames merges the tables opened in this process with any the host
// can enumerate through their index or generator keys.
func (b *kvBackend) tableNames() ([]string, error) {
	seen := map[string]bool{}
	for name := range b.tables {
		seen[name] = true
	}

	if lister, ok := b.kv.(keyLister); ok {
		keys, err := lister.Keys("")
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		for _, key := range keys {
			for _, suffix := range []string{indexSuffix, generatorSuffix, resolvedSuffix, legacySuffix} {
				if name, ok := strings.CutSuffix(key, suffix); ok && name != "" {
					seen[name] = true
				}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

type kvTable struct {
	kv       kv.KV
	name     string
	index    attr.List
	gen      *attr.Generator
	resolved map[int64]attr.Value
}

func openKVTable(store kv.KV, name string) (*kvTable, error) {
	t := &kvTable{kv: store, name: name, index: attr.List{}, resolved: map[int64]attr.Value{}}

	raw, ok, err := store.Get(name + indexSuffix)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", name, err)
	}
	if ok {
		if err := json.Unmarshal(raw, &t.index); err != nil {
			return nil, fmt.Errorf("open table %s: decode index: %w", name, err)
		}
	}

	t.gen, err = loadGenerator(store, name)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", name, err)
	}

	raw, ok, err = store.Get(name + resolvedSuffix)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", name, err)
	}
	if ok {
		m, err := attr.UnmarshalMap(raw)
		if err != nil {
			return nil, fmt.Errorf("open table %s: decode resolutions: %w", name, err)
		}
		for k, v := range m {
			seq, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("open table %s: decode resolutions: bad seq %q", name, k)
			}
			t.resolved[seq] = v
		}
	}
	return t, nil
}

// loadGenerator reads T:generator, migrating a legacy T:next_id counter on
// the way. The legacy key held the last issued id, so allocation resumes one
// past it.
func loadGenerator(store kv.KV, name string) (*attr.Generator, error) {
	raw, ok, err := store.Get(name + generatorSuffix)
	if err != nil {
		return nil, err
	}
	if ok {
		return attr.ParseGenerator(raw)
	}

	raw, ok, err = store.Get(name + legacySuffix)
	if err != nil {
		return nil, err
	}
	if !ok {
		return attr.NewGenerator(), nil
	}

	last, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(string(raw)), `"`), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode legacy %s%s %q: %w", name, legacySuffix, raw, err)
	}
	gen, err := attr.ResumeGenerator(max(last+1, 1))
	if err != nil {
		return nil, err
	}
	if err := saveGenerator(store, name, gen); err != nil {
		return nil, err
	}
	if err := store.Remove(name + legacySuffix); err != nil {
		return nil, fmt.Errorf("remove legacy counter: %w", err)
	}
	return gen, nil
}

func saveGenerator(store kv.KV, name string, gen *attr.Generator) error {
	raw, err := gen.MarshalJSON()
	if err != nil {
		return err
	}
	if err := store.Set(name+generatorSuffix, raw); err != nil {
		return fmt.Errorf("save generator: %w", err)
	}
	return nil
}

func (t *kvTable) recordKey(key string) string {
	if slices.Contains(reservedKeys, key) {
		return t.name + ":~" + key
	}
	return t.name + ":" + key
}

func (t *kvTable) indexOf(key string) int {
	return slices.IndexFunc(t.index, func(id attr.Value) bool { return attr.Key(id) == key })
}

func (t *kvTable) saveIndex() error {
	raw, err := attr.MarshalCanonical(t.index)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := t.kv.Set(t.name+indexSuffix, raw); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

func (t *kvTable) get(key string) (attr.Map, bool, error) {
	raw, ok, err := t.kv.Get(t.recordKey(key))
	if err != nil || !ok {
		return nil, false, err
	}
	row, err := attr.UnmarshalMap(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", t.recordKey(key), err)
	}
	return row, true, nil
}

func (t *kvTable) put(key string, id attr.Value, row attr.Map) error {
	raw, err := attr.MarshalCanonical(row)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.recordKey(key), err)
	}
	if err := t.kv.Set(t.recordKey(key), raw); err != nil {
		return fmt.Errorf("save %s: %w", t.recordKey(key), err)
	}
	if t.indexOf(key) >= 0 {
		return nil
	}
	// The index keeps its own copy so in-place resolution of the caller's
	// identifier does not change the key it was filed under.
	if sid, ok := id.(*attr.StoreID); ok && !sid.Resolved() {
		id = sid.Dup()
	}
	t.index = append(t.index, id)
	return t.saveIndex()
}

func (t *kvTable) remove(key string) error {
	if err := t.kv.Remove(t.recordKey(key)); err != nil {
		return fmt.Errorf("remove %s: %w", t.recordKey(key), err)
	}
	i := t.indexOf(key)
	if i < 0 {
		return nil
	}
	t.index = slices.Delete(t.index, i, i+1)
	return t.saveIndex()
}

// rows reads every indexed record. Index entries whose record is missing
// are skipped.
func (t *kvTable) rows() ([]attr.Map, error) {
	out := make([]attr.Map, 0, len(t.index))
	for _, id := range t.index {
		row, ok, err := t.get(attr.Key(id))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *kvTable) nextID() (*attr.StoreID, error) {
	id := t.gen.Next()
	if err := saveGenerator(t.kv, t.name, t.gen); err != nil {
		return nil, err
	}
	return id, nil
}

func (t *kvTable) generator() *attr.Generator {
	return t.gen
}

func (t *kvTable) resolution(seq int64) (attr.Value, bool) {
	v, ok := t.resolved[seq]
	return v, ok
}

func (t *kvTable) resolve(seq int64, value attr.Value) error {
	m := make(attr.Map, len(t.resolved)+1)
	for s, v := range t.resolved {
		m[strconv.FormatInt(s, 10)] = v
	}
	m[strconv.FormatInt(seq, 10)] = value
	raw, err := attr.MarshalCanonical(m)
	if err != nil {
		return fmt.Errorf("encode resolutions: %w", err)
	}
	if err := t.kv.Set(t.name+resolvedSuffix, raw); err != nil {
		return fmt.Errorf("save resolutions: %w", err)
	}
	t.resolved[seq] = value
	return nil
}
