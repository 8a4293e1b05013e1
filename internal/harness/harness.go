package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/kv"
	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/query"
	"github.com/roach88/shelf/internal/schema"
	"github.com/roach88/shelf/internal/store"
	"github.com/roach88/shelf/internal/testutil"
)

// Harness executes one scenario against a fresh store.
type Harness struct {
	store    *store.Store
	schema   *schema.Schema
	clock    *testutil.Clock
	recorder *testutil.Recorder
	handles  map[string]*store.Handle
	refs     refs
	logger   *slog.Logger
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario and returns the result.
//
// Each scenario runs against a fresh store. Execution flow:
//  1. Load the schema, if any
//  2. Subscribe observers
//  3. Push seed rows
//  4. Execute steps, checking expect clauses
//  5. Evaluate assertions and dump the final state
//
// The returned error reports a broken scenario (unknown reference, bad
// observer filter, unreadable schema). Failed expectations are recorded
// in Result.Errors instead.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	h := &Harness{
		clock:   testutil.NewClock(),
		handles: make(map[string]*store.Handle),
		refs:    refs{},
		logger:  logger,
	}
	h.recorder = testutil.NewRecorder(h.clock)

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithHandleIDs(store.NewSequenceGenerator("observer")),
	}
	if scenario.Backend == BackendDurable {
		h.store = store.NewDurable(kv.NewMemory(), opts...)
	} else {
		h.store = store.NewMemory(opts...)
	}

	if scenario.Schema != "" {
		sch, err := schema.Load(scenario.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
		h.schema = sch
	}

	if err := h.subscribe(scenario.Observers); err != nil {
		return nil, fmt.Errorf("failed to subscribe observers: %w", err)
	}
	if err := h.seed(scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{Store: h.store, refs: h.refs}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	if err := h.dumpState(result); err != nil {
		return nil, fmt.Errorf("failed to dump state: %w", err)
	}
	return result, nil
}

func (h *Harness) subscribe(observers []ObserverSpec) error {
	for _, o := range observers {
		opts := store.ObserveOptions{LocalOnly: o.LocalOnly, RemoteOnly: o.RemoteOnly}
		cb := h.recorder.Callback(o.Name)

		if o.Table == "" {
			h.handles[o.Name] = h.store.OnChange(opts, cb)
			continue
		}

		d := query.Descriptor{Table: o.Table}
		if o.Where != "" {
			node, err := predicate.Parse(o.Where, o.Table)
			if err != nil {
				return fmt.Errorf("observer %s: %w", o.Name, err)
			}
			d.Where(node)
		}
		h.handles[o.Name] = h.store.Watch(d, opts, cb)
	}
	return nil
}

func (h *Harness) seed(tables []SeedTable) error {
	for _, seed := range tables {
		for i, raw := range seed.Rows {
			row, err := h.refs.mapOf(raw)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", seed.Table, i, err)
			}
			if err := h.store.Push(seed.Table, row); err != nil {
				return fmt.Errorf("%s row %d: %w", seed.Table, i, err)
			}
		}
	}
	return nil
}

// outcome is what a step produced. err is the store's answer, checked
// against the expect clause.
type outcome struct {
	record attr.Map
	rows   []attr.Map
	err    error
}

func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		out, err := h.execute(step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}

		result.addNotifications(i+1, h.recorder.Notifications())
		h.recorder.Reset()

		for _, msg := range h.check(i+1, step, out) {
			result.AddError(msg)
		}

		h.logger.Debug("step completed",
			"step", i+1,
			"op", step.Op,
			"table", step.Table,
			"error", out.err,
		)
	}
	return nil
}

// execute runs one step. A returned error means the step itself is
// malformed.
func (h *Harness) execute(step Step) (outcome, error) {
	var mopts []store.MutationOption
	if step.Remote {
		mopts = append(mopts, store.FromRemote())
	}

	switch step.Op {
	case OpCreate:
		rec, err := h.refs.mapOf(step.Record)
		if err != nil {
			return outcome{}, err
		}
		id, opErr := h.store.Create(step.Table, rec, mopts...)
		if opErr == nil && step.As != "" {
			h.refs[step.As] = id
		}
		return outcome{record: rec, err: opErr}, nil

	case OpPush:
		rec, err := h.refs.mapOf(step.Record)
		if err != nil {
			return outcome{}, err
		}
		return outcome{record: rec, err: h.store.Push(step.Table, rec)}, nil

	case OpUpdate:
		rec, err := h.refs.mapOf(step.Record)
		if err != nil {
			return outcome{}, err
		}
		if existing, findErr := h.store.Find(step.Table, rec.ID()); findErr == nil {
			maps.Copy(existing, rec)
			rec = existing
		}
		return outcome{record: rec, err: h.store.Update(step.Table, rec, mopts...)}, nil

	case OpDestroy:
		id, err := h.refs.value(step.ID)
		if err != nil {
			return outcome{}, err
		}
		row, opErr := h.store.Find(step.Table, id)
		if opErr != nil {
			return outcome{err: opErr}, nil
		}
		return outcome{record: row, err: h.store.Destroy(step.Table, row, mopts...)}, nil

	case OpUpdateID:
		from, err := h.refs.value(step.ID)
		if err != nil {
			return outcome{}, err
		}
		to, err := h.refs.value(step.To)
		if err != nil {
			return outcome{}, err
		}
		return outcome{err: h.store.UpdateID(step.Table, from, to)}, nil

	case OpFind:
		id, err := h.refs.value(step.ID)
		if err != nil {
			return outcome{}, err
		}
		row, opErr := h.store.Find(step.Table, id)
		return outcome{record: row, err: opErr}, nil

	case OpQuery:
		rows, opErr := h.query(step)
		return outcome{rows: rows, err: opErr}, nil

	case OpUnsubscribe:
		h.handles[step.Observer].Unsubscribe()
		return outcome{}, nil
	}
	return outcome{}, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) query(step Step) ([]attr.Map, error) {
	rel := query.From(h.store, h.schema, step.Table)
	for _, j := range step.Joins {
		if from, to, ok := strings.Cut(j, "."); ok {
			rel.JoinsChain(from, to)
		} else {
			rel.Joins(j)
		}
	}
	if step.Where != "" {
		node, err := predicate.Parse(step.Where, step.Table)
		if err != nil {
			return nil, err
		}
		rel.Where(node)
	}
	if step.Order != "" {
		rel.Order(step.Order)
	}
	if step.Limit != nil {
		rel.Limit(*step.Limit)
	}
	rel.Offset(step.Offset)
	return rel.All()
}

// check compares a step's outcome with its expect clause.
func (h *Harness) check(n int, step Step, out outcome) []string {
	var msgs []string
	fail := func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf("steps[%d] %s %s: ", n, step.Op, step.Table)+fmt.Sprintf(format, args...))
	}

	var exp Expect
	if step.Expect != nil {
		exp = *step.Expect
	}

	switch {
	case out.err != nil && exp.Error == "":
		fail("unexpected error: %v", out.err)
		return msgs
	case out.err != nil:
		if got := errorName(out.err); got != exp.Error {
			fail("expected error %s, got %v", exp.Error, out.err)
		}
		return msgs
	case exp.Error != "":
		fail("expected error %s, got success", exp.Error)
		return msgs
	}

	if exp.Record != nil {
		want, err := h.refs.mapOf(exp.Record)
		if err != nil {
			fail("%v", err)
		} else if diff := subsetDiff(out.record, want); diff != "" {
			fail("record mismatch: %s", diff)
		}
	}
	if exp.IDs != nil {
		want := make([]attr.Value, len(exp.IDs))
		for i, raw := range exp.IDs {
			v, err := h.refs.value(raw)
			if err != nil {
				fail("%v", err)
				return msgs
			}
			want[i] = v
		}
		if !idsEqual(out.rows, want) {
			fail("expected ids %s, got %s", formatValues(want), formatIDs(out.rows))
		}
	}
	if exp.Count != nil && len(out.rows) != *exp.Count {
		fail("expected %d rows, got %d", *exp.Count, len(out.rows))
	}
	return msgs
}

// errorName maps a store or query error to its scenario name.
func errorName(err error) string {
	var parseErr *predicate.ParseError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNameNotFound
	case errors.Is(err, store.ErrDuplicateID):
		return ErrNameDuplicateID
	case errors.Is(err, store.ErrMissingID):
		return ErrNameMissingID
	case errors.Is(err, query.ErrConfig), errors.As(err, &parseErr):
		return ErrNameConfig
	}
	return ""
}

func (h *Harness) dumpState(result *Result) error {
	tables, err := h.store.Tables()
	if err != nil {
		return err
	}
	for _, table := range tables {
		rows, err := h.store.AllForTable(table)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			result.State[table] = rows
		}
	}
	return nil
}

// refs maps "$name" references to captured ids.
type refs map[string]attr.Value

// resolve replaces references inside a decoded YAML value.
func (r refs) resolve(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		if strings.HasPrefix(v, "$$") {
			return v[1:], nil
		}
		if name, ok := strings.CutPrefix(v, "$"); ok {
			id, found := r[name]
			if !found {
				return nil, fmt.Errorf("unknown reference $%s", name)
			}
			return id, nil
		}
		return v, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := r.resolve(elem)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			resolved, err := r.resolve(elem)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	}
	return raw, nil
}

func (r refs) value(raw any) (attr.Value, error) {
	resolved, err := r.resolve(raw)
	if err != nil {
		return nil, err
	}
	return attr.From(resolved)
}

func (r refs) mapOf(raw map[string]any) (attr.Map, error) {
	if raw == nil {
		return attr.Map{}, nil
	}
	v, err := r.value(raw)
	if err != nil {
		return nil, err
	}
	return v.(attr.Map), nil
}
