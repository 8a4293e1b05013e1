package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shelf/internal/predicate"
	"github.com/roach88/shelf/internal/query"
	"github.com/roach88/shelf/internal/querysql"
	"github.com/roach88/shelf/internal/schema"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Where   string
	Order   string
	Limit   int // negative means no limit
	Offset  int
	Joins   []string
	Explain bool
	Count   bool
}

// Explanation is the output of query --explain.
type Explanation struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Query a table",
		Long: `Query a table.

Rows of the table are inner-joined with the associations named by --join,
filtered by --where, ordered, then offset and limited. Only the table's own
rows are printed.

Filters use equality tests combined with and, or and not:
  done == true and (owner_id == 3 or owner_id == nil)
  users.name in ["kim", "lee"]
Bare fields refer to the queried table.

Joins name an association of the table, or association.association for a
two-step chain. They need a schema (--schema or "schema" in .shelf.json).

Examples:
  shelf query todos --where 'done == false' --order 'id desc' --limit 10
  shelf query posts --schema blog.cue --join comments.user --where 'users.name == "kim"'
  shelf query posts --join comments --explain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().StringVar(&opts.Order, "order", "", `ordering, e.g. "title, id desc"`)
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "maximum number of rows (negative for no limit)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringArrayVar(&opts.Joins, "join", nil, "association to inner-join (repeatable)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "print the SQL-like plan instead of running it")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matching rows")

	return cmd
}

func runQuery(opts *QueryOptions, table string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	sch, err := opts.loadSchema()
	if err != nil {
		return err
	}

	if opts.Explain {
		rel, err := opts.relation(nil, sch, table)
		if err != nil {
			return queryError(f, err)
		}
		d, err := rel.Descriptor()
		if err != nil {
			return queryError(f, err)
		}
		sql, params, err := querysql.Render(d)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render query", err)
		}
		if params == nil {
			params = []any{}
		}
		if opts.Format == "json" {
			return f.Success(Explanation{SQL: sql, Params: params})
		}
		fmt.Fprintln(f.Writer, sql)
		if len(params) > 0 {
			fmt.Fprintf(f.Writer, "params: %v\n", params)
		}
		return nil
	}

	st, closeFn, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	rel, err := opts.relation(st, sch, table)
	if err != nil {
		return queryError(f, err)
	}
	rows, err := rel.All()
	if err != nil {
		return queryError(f, err)
	}
	f.VerboseLog("%d row(s) from %s", len(rows), table)

	if opts.Count {
		if opts.Format == "json" {
			return f.Success(map[string]int{"count": len(rows)})
		}
		return f.Success(len(rows))
	}
	return f.Rows(rows)
}

// relation builds the query from the flags.
func (o *QueryOptions) relation(src query.Source, sch *schema.Schema, table string) (*query.Relation, error) {
	rel := query.From(src, sch, table)
	for _, j := range o.Joins {
		if from, to, ok := strings.Cut(j, "."); ok {
			rel.JoinsChain(from, to)
		} else {
			rel.Joins(j)
		}
	}
	if o.Where != "" {
		node, err := predicate.Parse(o.Where, table)
		if err != nil {
			return nil, err
		}
		rel.Where(node)
	}
	if o.Order != "" {
		rel.Order(o.Order)
	}
	if o.Limit >= 0 {
		rel.Limit(o.Limit)
	}
	rel.Offset(o.Offset)
	return rel, nil
}

// queryError reports a malformed query as a command error.
func queryError(f *OutputFormatter, err error) error {
	var parseErr *predicate.ParseError
	if errors.Is(err, query.ErrConfig) || errors.As(err, &parseErr) {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	return WrapExitError(ExitCommandError, "query failed", err)
}
