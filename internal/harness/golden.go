package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shelf/internal/attr"
)

// TraceSnapshot captures the notifications and final tables of one run.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        map[string][]attr.Map
}

// Canonical converts the snapshot into an attribute map so it serializes
// through attr.MarshalNormalized (sorted keys, no whitespace, NFC text).
func (s *TraceSnapshot) Canonical() attr.Map {
	trace := make(attr.List, len(s.Trace))
	for i, event := range s.Trace {
		trace[i] = attr.Map{
			"seq":         attr.Int(event.Seq),
			"step":        attr.Int(event.Step),
			"observer":    attr.String(event.Observer),
			"kind":        attr.String(event.Kind),
			"table":       attr.String(event.Table),
			"record":      event.Record,
			"from_remote": attr.Bool(event.FromRemote),
		}
	}

	state := attr.Map{}
	for table, rows := range s.State {
		list := make(attr.List, len(rows))
		for i, row := range rows {
			list[i] = row
		}
		state[table] = list
	}

	return attr.Map{
		"scenario_name": attr.String(s.ScenarioName),
		"trace":         trace,
		"state":         state,
	}
}

// Marshal returns the snapshot's canonical JSON. Text is NFC-normalized so
// goldens do not depend on how an editor composed a scenario's strings.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return attr.MarshalNormalized(s.Canonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
