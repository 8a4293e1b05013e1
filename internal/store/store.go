package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/kv"
	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/query"
	"github.com/roach88/shelf/internal/querysql"
)

// Store owns a set of tables, executes query descriptors against them and
// notifies observers of every mutation.
//
// A Store is single-threaded: there is no internal locking and callbacks
// run inline inside the mutating call. Callbacks may call back into the
// store.
type Store struct {
	backend  backend
	durable  bool
	registry *Registry
	logger   *slog.Logger
	handles  HandleIDGenerator

	// live holds the unresolved identifiers handed out by Create, per table
	// and sequence number, so UpdateID can resolve the caller's instance.
	live map[string]map[int64]*attr.StoreID
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithHandleIDs sets the generator for observer handle ids. Default:
// UUIDv7Generator.
func WithHandleIDs(gen HandleIDGenerator) Option {
	return func(s *Store) {
		s.handles = gen
	}
}

// NewMemory returns a store that keeps every table in process memory.
func NewMemory(opts ...Option) *Store {
	return newStore(newMemoryBackend(), opts)
}

// NewDurable returns a store that persists every table through host.
func NewDurable(host kv.KV, opts ...Option) *Store {
	s := newStore(newKVBackend(host), opts)
	s.durable = true
	return s
}

func newStore(b backend, opts []Option) *Store {
	s := &Store{
		backend: b,
		logger:  slog.Default(),
		handles: UUIDv7Generator{},
		live:    make(map[string]map[int64]*attr.StoreID),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(s.handles, s.logger)
	return s
}

// MutationOption describes where a mutation came from.
type MutationOption func(*Change)

// FromRemote marks the mutation as applied from the server. Observers with
// LocalOnly do not see it; only such mutations reach RemoteOnly observers.
func FromRemote() MutationOption {
	return func(c *Change) {
		c.FromRemote = true
	}
}

func (s *Store) notify(kind ChangeKind, table string, rec attr.Map, opts []MutationOption) error {
	ch := Change{Kind: kind, Table: table, Record: rec}
	for _, opt := range opts {
		opt(&ch)
	}
	s.logger.Debug("notify",
		"table", table,
		"kind", kind,
		"id", attr.Format(rec.ID()),
		"from_remote", ch.FromRemote,
	)
	return s.registry.Notify(ch)
}

// OnChange subscribes cb to changes in every table.
func (s *Store) OnChange(opts ObserveOptions, cb Callback) *Handle {
	return s.registry.Subscribe(cb, nil, opts)
}

// Watch subscribes cb to changes of d.Table whose record satisfies
// d.Predicate. Joins, ordering and bounds of d are ignored.
func (s *Store) Watch(d query.Descriptor, opts ObserveOptions, cb Callback) *Handle {
	return s.registry.Subscribe(cb, &Scope{Table: d.Table, Predicate: d.Predicate}, opts)
}

// Observers returns the number of live subscriptions.
func (s *Store) Observers() int {
	return s.registry.Len()
}

// Create stores a copy of rec. When rec has no id, one is allocated from
// the table's generator and written into rec. Observers see an insert after
// the row is stored.
func (s *Store) Create(table string, rec attr.Map, opts ...MutationOption) (attr.Value, error) {
	t, err := s.backend.table(table)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = attr.Map{}
	}

	id := rec.ID()
	if attr.IsNil(id) {
		sid, err := t.nextID()
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", table, err)
		}
		s.track(table, sid)
		id = sid
		rec[attr.IDKey] = sid
	} else {
		_, exists, err := t.get(attr.Key(id))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", table, err)
		}
		if exists {
			return nil, fmt.Errorf("create %s %s: %w", table, attr.Format(id), ErrDuplicateID)
		}
	}

	if err := t.put(attr.Key(id), id, s.stored(rec)); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	s.logger.Debug("record created", "table", table, "id", attr.Format(id))

	if err := s.notify(Insert, table, rec.Clone(), opts); err != nil {
		return id, fmt.Errorf("create %s: %w", table, err)
	}
	return id, nil
}

// Update stores a copy of rec under its id. Observers see an update when
// the attributes changed, or an insert when no prior row existed.
func (s *Store) Update(table string, rec attr.Map, opts ...MutationOption) error {
	id := rec.ID()
	if attr.IsNil(id) {
		return fmt.Errorf("update %s: %w", table, ErrMissingID)
	}
	t, err := s.backend.table(table)
	if err != nil {
		return err
	}

	key := attr.Key(id)
	prior, existed, err := t.get(key)
	if err == nil && existed {
		prior, err = s.hydrate(table, prior)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if err := t.put(key, id, s.stored(rec)); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	s.logger.Debug("record updated", "table", table, "id", attr.Format(id), "existed", existed)

	var kind ChangeKind
	switch {
	case !existed:
		kind = Insert
	case !prior.Equal(rec):
		kind = Update
	default:
		return nil
	}
	if err := s.notify(kind, table, rec.Clone(), opts); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// Push stores a copy of rec without notifying observers. It is meant for
// loading rows that are already known elsewhere, such as a server snapshot.
func (s *Store) Push(table string, rec attr.Map) error {
	id := rec.ID()
	if attr.IsNil(id) {
		return fmt.Errorf("push %s: %w", table, ErrMissingID)
	}
	t, err := s.backend.table(table)
	if err != nil {
		return err
	}
	if err := t.put(attr.Key(id), id, s.stored(rec)); err != nil {
		return fmt.Errorf("push %s: %w", table, err)
	}
	return nil
}

// Destroy removes rec's row. Observers see a delete before the row is
// removed; a callback error leaves the row in place.
func (s *Store) Destroy(table string, rec attr.Map, opts ...MutationOption) error {
	id := rec.ID()
	if attr.IsNil(id) {
		return fmt.Errorf("destroy %s: %w", table, ErrMissingID)
	}
	t, err := s.backend.table(table)
	if err != nil {
		return err
	}

	key := attr.Key(id)
	_, exists, err := t.get(key)
	if err != nil {
		return fmt.Errorf("destroy %s: %w", table, err)
	}
	if !exists {
		return &NotFoundError{Table: table, ID: id}
	}

	if err := s.notify(Delete, table, rec.Clone(), opts); err != nil {
		return fmt.Errorf("destroy %s: %w", table, err)
	}
	if err := t.remove(key); err != nil {
		return fmt.Errorf("destroy %s: %w", table, err)
	}
	s.logger.Debug("record destroyed", "table", table, "id", attr.Format(id))
	return nil
}

// Find returns a copy of the row with the given id.
func (s *Store) Find(table string, id any) (attr.Map, error) {
	v, err := attr.From(id)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	t, err := s.backend.table(table)
	if err != nil {
		return nil, err
	}

	row, ok, err := t.get(attr.Key(v))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	if !ok {
		return nil, &NotFoundError{Table: table, ID: v}
	}
	row, err = s.hydrate(table, row)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	return row, nil
}

// UpdateID moves the row at oldID to newID.
//
// When oldID is an unresolved identifier it is resolved in place to newID,
// so every holder of the instance Create returned now sees the final id,
// and the table records the resolution so references read back later see
// it too. Resolution happens only after the row has moved. The relocated
// row moves to the end of the table order and oldID no longer finds it. No
// observers are notified.
func (s *Store) UpdateID(table string, oldID, newID any) error {
	oldVal, err := attr.From(oldID)
	if err != nil {
		return fmt.Errorf("update id %s: %w", table, err)
	}
	newVal, err := attr.From(newID)
	if err != nil {
		return fmt.Errorf("update id %s: %w", table, err)
	}
	if sid, ok := newVal.(*attr.StoreID); ok {
		if !sid.Resolved() {
			return fmt.Errorf("update id %s: new id %s is unresolved", table, sid)
		}
		newVal = sid.Value()
	}
	if attr.IsNil(newVal) {
		return fmt.Errorf("update id %s: %w", table, ErrMissingID)
	}

	t, err := s.backend.table(table)
	if err != nil {
		return err
	}

	oldKey, newKey := attr.Key(oldVal), attr.Key(newVal)
	row, ok, err := t.get(oldKey)
	if err != nil {
		return fmt.Errorf("update id %s: %w", table, err)
	}
	if !ok {
		return &NotFoundError{Table: table, ID: oldVal}
	}
	if newKey != oldKey {
		if _, taken, err := t.get(newKey); err != nil {
			return fmt.Errorf("update id %s: %w", table, err)
		} else if taken {
			return fmt.Errorf("update id %s %s: %w", table, attr.Format(newVal), ErrDuplicateID)
		}
	}

	moved := row.Clone()
	moved[attr.IDKey] = newVal
	if newKey == oldKey {
		if err := t.remove(oldKey); err != nil {
			return fmt.Errorf("update id %s: %w", table, err)
		}
	}
	if err := t.put(newKey, newVal, moved); err != nil {
		return fmt.Errorf("update id %s: %w", table, err)
	}
	if newKey != oldKey {
		if err := t.remove(oldKey); err != nil {
			return fmt.Errorf("update id %s: %w", table, err)
		}
	}

	if sid, ok := oldVal.(*attr.StoreID); ok && !sid.Resolved() {
		if err := t.resolve(sid.Seq(), newVal); err != nil {
			return fmt.Errorf("update id %s: %w", table, err)
		}
		if err := s.resolve(table, sid, newVal); err != nil {
			return fmt.Errorf("update id %s: %w", table, err)
		}
	}
	s.logger.Debug("record id updated", "table", table, "old", oldKey, "new", newKey)
	return nil
}

// AllForTable returns copies of every row of table in table order.
func (s *Store) AllForTable(table string) ([]attr.Map, error) {
	t, err := s.backend.table(table)
	if err != nil {
		return nil, err
	}
	rows, err := t.rows()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	out := make([]attr.Map, len(rows))
	for i, row := range rows {
		if out[i], err = s.hydrate(table, row); err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
	}
	return out, nil
}

// Tables lists the known tables in sorted order.
func (s *Store) Tables() ([]string, error) {
	return s.backend.tableNames()
}

// NextID reports the sequence number the table's generator will issue
// next.
func (s *Store) NextID(table string) (int64, error) {
	t, err := s.backend.table(table)
	if err != nil {
		return 0, err
	}
	return t.generator().NextID(), nil
}

// Execute runs a descriptor: join, filter, project onto the primary table,
// order, offset, limit. The returned maps are copies.
func (s *Store) Execute(d query.Descriptor) ([]attr.Map, error) {
	if d.Table == "" {
		return nil, errors.New("execute: descriptor has no table")
	}

	views, err := s.views(d.Table)
	if err != nil {
		return nil, err
	}
	for _, j := range d.Joins {
		for _, hop := range j.Hops(d.Table) {
			side, err := s.views(hop.Table)
			if err != nil {
				return nil, err
			}
			views = JoinTables(views, side, hop.LeftTable, hop.LeftColumn, hop.Table, hop.RightColumn)
		}
	}

	rows := make([]attr.Map, 0, len(views))
	for _, v := range views {
		if predicate.Matches(d.Predicate, v) {
			rows = append(rows, v[d.Table])
		}
	}

	query.SortRows(rows, d.Orderings)
	rows = bound(rows, d.Offset, d.Limit)

	out := make([]attr.Map, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}

	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		if sql, params, err := querysql.Render(d); err == nil {
			s.logger.Debug("executed query", "sql", sql, "params", params, "rows", len(out))
		}
	}
	return out, nil
}

func (s *Store) views(table string) ([]attr.View, error) {
	t, err := s.backend.table(table)
	if err != nil {
		return nil, err
	}
	rows, err := t.rows()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	views := make([]attr.View, len(rows))
	for i, row := range rows {
		row, err := s.hydrate(table, row)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
		views[i] = attr.View{table: row}
	}
	return views, nil
}

// bound applies offset then limit.
func bound(rows []attr.Map, offset int, limit *int) []attr.Map {
	if offset > 0 {
		if offset >= len(rows) {
			return rows[:0]
		}
		rows = rows[offset:]
	}
	if limit != nil && *limit < len(rows) {
		rows = rows[:max(*limit, 0)]
	}
	return rows
}

func (s *Store) track(table string, id *attr.StoreID) {
	byseq, ok := s.live[table]
	if !ok {
		byseq = make(map[int64]*attr.StoreID)
		s.live[table] = byseq
	}
	byseq[id.Seq()] = id
}

// resolve resolves the live instance for sid (and sid itself when it is a
// different, still unresolved instance) and forgets it.
func (s *Store) resolve(table string, sid *attr.StoreID, value attr.Value) error {
	if live, ok := s.live[table][sid.Seq()]; ok {
		delete(s.live[table], sid.Seq())
		if err := live.ResolveTo(value); err != nil {
			return err
		}
		if live == sid {
			return nil
		}
	}
	return sid.ResolveTo(value)
}

// stored returns the copy of rec a table keeps. A durable store writes
// references to other rows' unresolved identifiers together with the table
// that issued them, so they can still be resolved after a reload. Only
// identifiers handed out by this store are recognized.
func (s *Store) stored(rec attr.Map) attr.Map {
	out := rec.Clone()
	if !s.durable {
		return out
	}
	for k, v := range out {
		if k != attr.IDKey {
			out[k] = s.tagReferences(v)
		}
	}
	return out
}

func (s *Store) tagReferences(v attr.Value) attr.Value {
	switch val := v.(type) {
	case *attr.StoreID:
		if val.Resolved() || val.Table() != "" {
			return val
		}
		for table, byseq := range s.live {
			if byseq[val.Seq()] == val {
				return val.InTable(table)
			}
		}
	case attr.List:
		out := make(attr.List, len(val))
		for i, elem := range val {
			out[i] = s.tagReferences(elem)
		}
		return out
	case attr.Map:
		out := make(attr.Map, len(val))
		for k, elem := range val {
			out[k] = s.tagReferences(elem)
		}
		return out
	}
	return v
}

// hydrate copies row and replaces unresolved identifiers read back from
// storage: the row's own id and tagged references become the live instance
// Create handed out while it is still unresolved, or a resolved identifier
// once the issuing table has recorded a resolution.
func (s *Store) hydrate(table string, row attr.Map) (attr.Map, error) {
	out := row.Clone()
	for k, v := range out {
		hv, err := s.hydrateValue(table, k == attr.IDKey, v)
		if err != nil {
			return nil, err
		}
		out[k] = hv
	}
	return out, nil
}

func (s *Store) hydrateValue(table string, own bool, v attr.Value) (attr.Value, error) {
	switch val := v.(type) {
	case *attr.StoreID:
		if val.Resolved() {
			return val, nil
		}
		origin := val.Table()
		if origin == "" {
			if !own {
				return val, nil
			}
			origin = table
		}
		return s.lookup(origin, val)
	case attr.List:
		out := make(attr.List, len(val))
		for i, elem := range val {
			hv, err := s.hydrateValue(table, false, elem)
			if err != nil {
				return nil, err
			}
			out[i] = hv
		}
		return out, nil
	case attr.Map:
		out := make(attr.Map, len(val))
		for k, elem := range val {
			hv, err := s.hydrateValue(table, false, elem)
			if err != nil {
				return nil, err
			}
			out[k] = hv
		}
		return out, nil
	}
	return v, nil
}

// lookup finds the current form of an unresolved identifier issued by table.
func (s *Store) lookup(table string, id *attr.StoreID) (attr.Value, error) {
	if live, ok := s.live[table][id.Seq()]; ok {
		return live, nil
	}
	t, err := s.backend.table(table)
	if err != nil {
		return nil, err
	}
	final, ok := t.resolution(id.Seq())
	if !ok {
		return id, nil
	}
	resolved := id.Dup()
	if err := resolved.ResolveTo(final); err != nil {
		return nil, err
	}
	return resolved, nil
}
