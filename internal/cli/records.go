package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/store"
)

const idHelp = `Ids are integers or strings. A record created without an id holds a
temporary id until it is resolved; address it as T-<n> (for example T-3).`

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <table> <record>",
		Short: "Create or replace a record",
		Long: `Create or replace a record.

The record is a JSON object; comments and trailing commas are accepted.
Without an "id" a temporary id is allocated. With an id, the row stored
under it is replaced or created.

` + idHelp + `

Examples:
  shelf put todos '{"title": "write docs", "done": false}'
  shelf put todos '{"id": 41, "title": "write docs", "done": true}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runPut(opts *RootOptions, table, raw string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	rec, err := parseRecord(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid record", err)
	}

	st, closeFn, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if attr.IsNil(rec.ID()) {
		_, err = st.Create(table, rec)
	} else {
		err = st.Update(table, rec)
	}
	if err != nil {
		return storeError(f, "put", err)
	}
	return f.Rows([]attr.Map{rec})
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print one record",
		Long:  "Print one record.\n\n" + idHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			st, closeFn, err := rootOpts.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			row, err := st.Find(args[0], parseID(args[1]))
			if err != nil {
				return storeError(f, "get", err)
			}
			return f.Rows([]attr.Map{row})
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <table> <id>",
		Short: "Remove a record",
		Long:  "Remove a record and print it.\n\n" + idHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			st, closeFn, err := rootOpts.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			row, err := st.Find(args[0], parseID(args[1]))
			if err != nil {
				return storeError(f, "rm", err)
			}
			if err := st.Destroy(args[0], row); err != nil {
				return storeError(f, "rm", err)
			}
			return f.Rows([]attr.Map{row})
		},
	}
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <table> <old-id> <new-id>",
		Short: "Move a record to its final id",
		Long: `Move a record to its final id.

Typically used once a server has assigned the id of a record created
offline. The record moves to the end of the table order.

` + idHelp + `

Example:
  shelf resolve todos T-1 41`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			st, closeFn, err := rootOpts.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			newID := parseID(args[2])
			if err := st.UpdateID(args[0], parseID(args[1]), newID); err != nil {
				return storeError(f, "resolve", err)
			}
			row, err := st.Find(args[0], newID)
			if err != nil {
				return storeError(f, "resolve", err)
			}
			return f.Rows([]attr.Map{row})
		},
	}
}

// parseRecord decodes a JSON object record.
func parseRecord(raw string) (attr.Map, error) {
	std, err := hujson.Standardize([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return attr.UnmarshalMap(std)
}

// parseID reads an integer id when the argument is one, an unresolved id
// for the temporary form T-<n>, and a string id otherwise.
func parseID(s string) attr.Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return attr.Int(n)
	}
	if rest, ok := strings.CutPrefix(s, "T-"); ok {
		if n, err := strconv.ParseInt(rest, 10, 64); err == nil && n > 0 {
			return attr.NewStoreID(n)
		}
	}
	return attr.String(s)
}

// storeError reports a failed store operation. A missing or clashing
// record is a failure (exit 1); anything else is a command error.
func storeError(f *OutputFormatter, op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = f.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, op+" failed", err)
	case errors.Is(err, store.ErrDuplicateID), errors.Is(err, store.ErrMissingID):
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, op+" failed", err)
	}
	return WrapExitError(ExitCommandError, op+" failed", err)
}
