package harness

import (
	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/testutil"
)

// TraceEvent is one notification delivered during the flow.
type TraceEvent struct {
	Seq        int64    `json:"seq"`
	Step       int      `json:"step"` // 1-based; 0 for notifications outside steps
	Observer   string   `json:"observer"`
	Kind       string   `json:"kind"`
	Table      string   `json:"table"`
	Record     attr.Map `json:"record"`
	FromRemote bool     `json:"from_remote"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every notification in delivery order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds every table's rows after the flow, in table order.
	State map[string][]attr.Map `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]attr.Map),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addNotifications appends recorded notifications attributed to step.
func (r *Result) addNotifications(step int, ns []testutil.Notification) {
	for _, n := range ns {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:        n.Seq,
			Step:       step,
			Observer:   n.Observer,
			Kind:       string(n.Kind),
			Table:      n.Table,
			Record:     n.Record,
			FromRemote: n.FromRemote,
		})
	}
}
