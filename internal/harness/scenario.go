package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one store conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the store variant: "memory" (default) or "durable".
	Backend string `yaml:"backend,omitempty"`

	// Schema is an optional CUE association file used by query joins.
	// Relative paths resolve against the scenario file's directory.
	Schema string `yaml:"schema,omitempty"`

	// Observers are subscribed before seeding, in order.
	Observers []ObserverSpec `yaml:"observers,omitempty"`

	// Seed rows are pushed without notifications.
	Seed []SeedTable `yaml:"seed,omitempty"`

	// Steps is the main flow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ObserverSpec subscribes a named observer.
type ObserverSpec struct {
	Name string `yaml:"name"`

	// Table scopes the observer to one table; Where further limits it to
	// records matching a filter expression over that table.
	Table string `yaml:"table,omitempty"`
	Where string `yaml:"where,omitempty"`

	LocalOnly  bool `yaml:"local_only,omitempty"`
	RemoteOnly bool `yaml:"remote_only,omitempty"`
}

// SeedTable lists rows pushed into one table before the flow.
type SeedTable struct {
	Table string           `yaml:"table"`
	Rows  []map[string]any `yaml:"rows"`
}

// Step is one store operation.
type Step struct {
	Op     string         `yaml:"op"`
	Table  string         `yaml:"table,omitempty"`
	Record map[string]any `yaml:"record,omitempty"`
	ID     any            `yaml:"id,omitempty"`
	To     any            `yaml:"to,omitempty"`

	// As captures the created id under a name for later "$name" references.
	As string `yaml:"as,omitempty"`

	// Remote marks the mutation as coming from the server.
	Remote bool `yaml:"remote,omitempty"`

	// Observer names the subscription dropped by unsubscribe.
	Observer string `yaml:"observer,omitempty"`

	// Query fields.
	Where  string   `yaml:"where,omitempty"`
	Order  string   `yaml:"order,omitempty"`
	Limit  *int     `yaml:"limit,omitempty"`
	Offset int      `yaml:"offset,omitempty"`
	Joins  []string `yaml:"joins,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is checked against a step's outcome. Unset fields are not checked.
type Expect struct {
	// Error names the expected failure; empty expects success.
	Error string `yaml:"error,omitempty"`

	// Record is a subset match against the row a find returns.
	Record map[string]any `yaml:"record,omitempty"`

	// IDs are the ids a query returns, in order.
	IDs []any `yaml:"ids,omitempty"`

	// Count is the number of rows a query returns.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Observer, Kind and Table filter notifications. Empty matches any.
	Observer string `yaml:"observer,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Table    string `yaml:"table,omitempty"`

	// Record is a subset match against a notification (trace_contains).
	Record map[string]any `yaml:"record,omitempty"`

	// Kinds is the expected order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the exact number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Where selects the row and Expect is the subset it must contain
	// (final_state).
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpCreate      = "create"
	OpPush        = "push"
	OpUpdate      = "update"
	OpDestroy     = "destroy"
	OpUpdateID    = "update_id"
	OpFind        = "find"
	OpQuery       = "query"
	OpUnsubscribe = "unsubscribe"
)

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Expected error names.
const (
	ErrNameNotFound    = "not_found"
	ErrNameDuplicateID = "duplicate_id"
	ErrNameMissingID   = "missing_id"
	ErrNameConfig      = "config"
)

// Store backends.
const (
	BackendMemory  = "memory"
	BackendDurable = "durable"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	if scenario.Schema != "" {
		if _, err := os.Stat(scenario.Schema); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", scenario.Schema)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Unknown fields are
// rejected so typos surface as errors.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Discover returns the scenario files (*.yaml, *.yml) under dir, sorted.
func Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scenarios in %s: %w", dir, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", BackendMemory, BackendDurable:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", s.Backend, BackendMemory, BackendDurable)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	names := map[string]bool{}
	for i, o := range s.Observers {
		if o.Name == "" {
			return fmt.Errorf("observers[%d]: name is required", i)
		}
		if names[o.Name] {
			return fmt.Errorf("observers[%d]: duplicate name %q", i, o.Name)
		}
		names[o.Name] = true
		if o.Where != "" && o.Table == "" {
			return fmt.Errorf("observers[%d]: where requires table", i)
		}
	}

	for i, seed := range s.Seed {
		if seed.Table == "" {
			return fmt.Errorf("seed[%d]: table is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, names); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step, observers map[string]bool) error {
	switch step.Op {
	case OpCreate, OpPush, OpUpdate:
		if step.Table == "" {
			return fmt.Errorf("steps[%d]: table is required for %s", index, step.Op)
		}
		if step.Record == nil {
			return fmt.Errorf("steps[%d]: record is required for %s (use {} for an empty record)", index, step.Op)
		}
	case OpDestroy, OpFind:
		if step.Table == "" || step.ID == nil {
			return fmt.Errorf("steps[%d]: table and id are required for %s", index, step.Op)
		}
	case OpUpdateID:
		if step.Table == "" || step.ID == nil || step.To == nil {
			return fmt.Errorf("steps[%d]: table, id and to are required for %s", index, step.Op)
		}
	case OpQuery:
		if step.Table == "" {
			return fmt.Errorf("steps[%d]: table is required for %s", index, step.Op)
		}
	case OpUnsubscribe:
		if !observers[step.Observer] {
			return fmt.Errorf("steps[%d]: unknown observer %q", index, step.Observer)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Expect != nil {
		switch step.Expect.Error {
		case "", ErrNameNotFound, ErrNameDuplicateID, ErrNameMissingID, ErrNameConfig:
		default:
			return fmt.Errorf("steps[%d].expect: unknown error name %q", index, step.Expect.Error)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
	case AssertTraceOrder:
		if a.Observer == "" {
			return fmt.Errorf("assertions[%d]: observer is required for trace_order", index)
		}
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
