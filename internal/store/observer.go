package store

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/predicate"
)

// ChangeKind is the kind of mutation an observer is told about.
type ChangeKind string

const (
	Insert ChangeKind = "insert"
	Update ChangeKind = "update"
	Delete ChangeKind = "delete"
)

// Change is one notification.
type Change struct {
	Kind       ChangeKind
	Table      string
	Record     attr.Map
	FromRemote bool
}

// Callback receives changes synchronously, inside the mutating call. A
// non-nil error stops the notification pass and is returned to the caller
// of the mutation.
type Callback func(Change) error

// ObserveOptions restrict delivery by provenance.
type ObserveOptions struct {
	// LocalOnly suppresses changes emitted with FromRemote.
	LocalOnly bool
	// RemoteOnly suppresses changes emitted without FromRemote.
	RemoteOnly bool
}

// Scope limits an observer to one table, and optionally to records that
// satisfy a predicate evaluated against {Table: record}.
type Scope struct {
	Table     string
	Predicate predicate.Node
}

type observer struct {
	id       string
	callback Callback
	scope    *Scope
	opts     ObserveOptions
	active   bool
}

// wants reports whether the observer should see ch.
func (o *observer) wants(ch Change) bool {
	if ch.FromRemote && o.opts.LocalOnly {
		return false
	}
	if !ch.FromRemote && o.opts.RemoteOnly {
		return false
	}
	if o.scope == nil {
		return true
	}
	if o.scope.Table != ch.Table {
		return false
	}
	return predicate.Matches(o.scope.Predicate, attr.View{ch.Table: ch.Record})
}

// Registry delivers changes to observers in subscription order.
//
// Registry is not safe for concurrent use. Callbacks may subscribe,
// unsubscribe or mutate the store re-entrantly: observers added during a
// pass are first notified on the next pass, and observers removed during a
// pass are skipped for the rest of it.
type Registry struct {
	observers []*observer
	ids       HandleIDGenerator
	logger    *slog.Logger
}

// NewRegistry returns an empty registry. A nil ids uses UUIDv7Generator; a
// nil logger uses slog.Default.
func NewRegistry(ids HandleIDGenerator, logger *slog.Logger) *Registry {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{ids: ids, logger: logger}
}

// Handle identifies one subscription.
type Handle struct {
	ID       string
	registry *Registry
}

// Unsubscribe removes the subscription. Calling it again is a no-op.
func (h *Handle) Unsubscribe() {
	if h == nil || h.registry == nil {
		return
	}
	h.registry.remove(h.ID)
	h.registry = nil
}

// Subscribe registers cb. A nil scope observes every table.
func (r *Registry) Subscribe(cb Callback, scope *Scope, opts ObserveOptions) *Handle {
	o := &observer{
		id:       r.ids.Generate(),
		callback: cb,
		scope:    scope,
		opts:     opts,
		active:   true,
	}
	r.observers = append(r.observers, o)
	r.logger.Debug("observer subscribed",
		"handle", o.id,
		"scoped", scope != nil,
		"local_only", opts.LocalOnly,
		"remote_only", opts.RemoteOnly,
	)
	return &Handle{ID: o.id, registry: r}
}

func (r *Registry) remove(id string) {
	i := slices.IndexFunc(r.observers, func(o *observer) bool { return o.id == id })
	if i < 0 {
		return
	}
	r.observers[i].active = false
	r.observers = slices.Delete(r.observers, i, i+1)
	r.logger.Debug("observer unsubscribed", "handle", id)
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	return len(r.observers)
}

// Notify delivers ch to every interested observer. The first callback
// error aborts the pass.
func (r *Registry) Notify(ch Change) error {
	snapshot := slices.Clone(r.observers)
	for _, o := range snapshot {
		if !o.active || !o.wants(ch) {
			continue
		}
		if err := o.callback(ch); err != nil {
			r.logger.Debug("observer failed",
				"handle", o.id,
				"table", ch.Table,
				"kind", ch.Kind,
				"error", err,
			)
			return fmt.Errorf("observer %s: %w", o.id, err)
		}
	}
	return nil
}
