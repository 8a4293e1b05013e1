package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shelf/internal/attr"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [table...]",
		Short: "Print every record of the given tables (default: all)",
		Long: `Print every record of the given tables, in table order.

Without arguments every table in the database is printed. Text output
starts each table with a "# <table>" line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, args, cmd)
		},
	}
}

func runDump(opts *RootOptions, tables []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	st, closeFn, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if len(tables) == 0 {
		tables, err = st.Tables()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list tables", err)
		}
	}

	dump := make(map[string][]attr.Map, len(tables))
	for _, table := range tables {
		rows, err := st.AllForTable(table)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", table), err)
		}
		if rows == nil {
			rows = []attr.Map{}
		}
		dump[table] = rows
	}

	if opts.Format == "json" {
		return f.Success(dump)
	}
	for _, table := range tables {
		fmt.Fprintf(f.Writer, "# %s\n", table)
		if err := f.Rows(dump[table]); err != nil {
			return err
		}
	}
	return nil
}
