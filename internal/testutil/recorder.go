package testutil

import (
	"fmt"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/store"
)

// Notification is one change as an observer saw it.
type Notification struct {
	Seq        int64
	Observer   string
	Kind       store.ChangeKind
	Table      string
	Record     attr.Map
	FromRemote bool
}

// Recorder collects notifications from any number of named observers,
// stamped by a shared Clock.
//
// Records are snapshotted through their canonical JSON form, so an
// identifier resolved after the notification still shows as the
// placeholder the observer was handed.
type Recorder struct {
	clock *Clock
	log   []Notification
}

// NewRecorder returns an empty recorder. A nil clock starts a fresh one.
func NewRecorder(clock *Clock) *Recorder {
	if clock == nil {
		clock = NewClock()
	}
	return &Recorder{clock: clock}
}

// Callback returns a store.Callback that records under name.
func (r *Recorder) Callback(name string) store.Callback {
	return func(ch store.Change) error {
		snap, err := snapshot(ch.Record)
		if err != nil {
			return fmt.Errorf("record %s notification: %w", name, err)
		}
		r.log = append(r.log, Notification{
			Seq:        r.clock.Next(),
			Observer:   name,
			Kind:       ch.Kind,
			Table:      ch.Table,
			Record:     snap,
			FromRemote: ch.FromRemote,
		})
		return nil
	}
}

// Notifications returns everything recorded so far, in delivery order.
func (r *Recorder) Notifications() []Notification {
	return r.log
}

// For returns the notifications delivered to one observer.
func (r *Recorder) For(name string) []Notification {
	var out []Notification
	for _, n := range r.log {
		if n.Observer == name {
			out = append(out, n)
		}
	}
	return out
}

// Kinds lists the change kinds delivered to one observer.
func (r *Recorder) Kinds(name string) []store.ChangeKind {
	var out []store.ChangeKind
	for _, n := range r.For(name) {
		out = append(out, n.Kind)
	}
	return out
}

// Reset forgets every notification. The clock keeps running.
func (r *Recorder) Reset() {
	r.log = nil
}

func snapshot(rec attr.Map) (attr.Map, error) {
	raw, err := attr.MarshalCanonical(rec)
	if err != nil {
		return nil, err
	}
	return attr.UnmarshalMap(raw)
}
