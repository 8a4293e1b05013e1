package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/query"
	"github.com/roach88/shelf/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s %s %s %s\n",
				event.Seq, event.Step, event.Observer, event.Kind, event.Table, attr.Format(event.Record.ID()))
		}
	}
	return buf.String()
}

// AssertionContext provides the store and captured references that
// assertions resolve against.
type AssertionContext struct {
	Store *store.Store
	refs  refs
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string
	var r refs
	if actx != nil {
		r = actx.refs
	}

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion, r)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion, r)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a store", i)
			} else {
				err = assertFinalState(actx.Store, assertion, r)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// matches reports whether event passes the assertion's observer, kind and
// table filters and contains want.
func matches(event TraceEvent, a Assertion, want attr.Map) bool {
	if a.Observer != "" && event.Observer != a.Observer {
		return false
	}
	if a.Kind != "" && event.Kind != a.Kind {
		return false
	}
	if a.Table != "" && event.Table != a.Table {
		return false
	}
	return subsetDiff(event.Record, want) == ""
}

func describe(a Assertion) string {
	parts := []string{}
	for _, f := range [][2]string{{"observer", a.Observer}, {"kind", a.Kind}, {"table", a.Table}} {
		if f[1] != "" {
			parts = append(parts, f[0]+"="+f[1])
		}
	}
	if len(a.Record) > 0 {
		parts = append(parts, fmt.Sprintf("record contains %v", a.Record))
	}
	if len(parts) == 0 {
		return "any notification"
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that some notification matches.
func assertTraceContains(trace []TraceEvent, a Assertion, r refs) error {
	want, err := r.mapOf(a.Record)
	if err != nil {
		return err
	}
	for _, event := range trace {
		if matches(event, a, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the observer saw the kinds in order.
// Other notifications may come between them.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	var seen []string
	for _, event := range trace {
		if event.Observer != a.Observer || (a.Table != "" && event.Table != a.Table) {
			continue
		}
		seen = append(seen, event.Kind)
		if next < len(a.Kinds) && event.Kind == a.Kinds[next] {
			next++
		}
	}
	if next == len(a.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("%s to see %v in order", a.Observer, a.Kinds),
		Actual:   fmt.Sprintf("saw %v", seen),
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of matching notifications.
func assertTraceCount(trace []TraceEvent, a Assertion, r refs) error {
	want, err := r.mapOf(a.Record)
	if err != nil {
		return err
	}
	count := 0
	for _, event := range trace {
		if matches(event, a, want) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d of %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of the table matches where
// and that it contains expect.
func assertFinalState(st *store.Store, a Assertion, r refs) error {
	where, err := r.mapOf(a.Where)
	if err != nil {
		return err
	}
	want, err := r.mapOf(a.Expect)
	if err != nil {
		return err
	}

	rows, err := query.From(st, nil, a.Table).Where(where).All()
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, attr.Format(where)),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, attr.Format(where)),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(rows)),
		}
	}

	if diff := subsetDiff(rows[0], want); diff != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: attr.Format(want),
			Actual:   diff,
		}
	}
	return nil
}

// subsetDiff describes the first key of want that actual lacks or holds a
// different value for. Extra keys in actual are ignored.
func subsetDiff(actual, want attr.Map) string {
	for _, key := range want.SortedKeys() {
		got, ok := actual[key]
		if !ok && !attr.IsNil(want[key]) {
			return fmt.Sprintf("field %q missing", key)
		}
		if !attr.Equal(got, want[key]) {
			return fmt.Sprintf("field %q = %s, want %s", key, attr.Format(got), attr.Format(want[key]))
		}
	}
	return ""
}

func idsEqual(rows []attr.Map, want []attr.Value) bool {
	if len(rows) != len(want) {
		return false
	}
	for i, row := range rows {
		if !attr.Equal(row.ID(), want[i]) {
			return false
		}
	}
	return true
}

func formatIDs(rows []attr.Map) string {
	ids := make([]attr.Value, len(rows))
	for i, row := range rows {
		ids[i] = row.ID()
	}
	return formatValues(ids)
}

func formatValues(vs []attr.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = attr.Format(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
