package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shelf/internal/schema"
)

// ValidationResult describes a loaded schema.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Tables []TableResult `json:"tables,omitempty"`
}

// TableResult lists one table's associations.
type TableResult struct {
	Name         string              `json:"name"`
	Associations []AssociationResult `json:"associations"`
}

// AssociationResult is one association with its naming defaults applied.
type AssociationResult struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Table      string `json:"table"`
	ForeignKey string `json:"foreign_key"`
}

// SchemaErrorDetails locates a schema error in its CUE source.
type SchemaErrorDetails struct {
	Field  string `json:"field"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [schema]",
		Short: "Check an association schema",
		Long: `Check a CUE association schema and print the associations it declares,
with conventional table and foreign key names filled in.

The schema path defaults to --schema. The expected shape is:

  table: posts: {
    has_many: comments: {}
    belongs_to: author: {table: "users", foreign_key: "writer_id"}
  }

Exit codes:
  0 - Schema is valid
  1 - Schema has errors
  2 - Command error (no schema given, etc.)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Schema
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if path == "" {
		return NewExitError(ExitCommandError, "no schema given: pass a path or set --schema")
	}

	f.VerboseLog("Loading schema %s", path)
	sch, err := schema.Load(path)
	if err != nil {
		var loadErr *schema.LoadError
		if !errors.As(err, &loadErr) || loadErr.Field == "path" {
			return WrapExitError(ExitCommandError, "failed to load schema", err)
		}
		details := SchemaErrorDetails{Field: loadErr.Field}
		if loadErr.Pos.IsValid() {
			details.File = loadErr.Pos.Filename()
			details.Line = loadErr.Pos.Line()
			details.Column = loadErr.Pos.Column()
		}
		_ = f.Error(ErrCodeSchema, loadErr.Error(), details)
		return WrapExitError(ExitFailure, "invalid schema", err)
	}

	result := ValidationResult{Valid: true}
	for _, table := range sch.Tables() {
		tr := TableResult{Name: table, Associations: []AssociationResult{}}
		for _, a := range sch.Associations(table) {
			tr.Associations = append(tr.Associations, AssociationResult{
				Name:       a.Name,
				Kind:       string(a.Kind),
				Table:      a.Table,
				ForeignKey: a.ForeignKey,
			})
		}
		result.Tables = append(result.Tables, tr)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}

	w := f.Writer
	for _, table := range result.Tables {
		fmt.Fprintln(w, table.Name)
		for _, a := range table.Associations {
			fmt.Fprintf(w, "  %s %s -> %s via %s\n", a.Kind, a.Name, a.Table, a.ForeignKey)
		}
	}
	fmt.Fprintf(w, "✓ schema valid (%d tables)\n", len(result.Tables))
	return nil
}
