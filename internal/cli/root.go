package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shelf/internal/kv"
	"github.com/roach88/shelf/internal/schema"
	"github.com/roach88/shelf/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string
	Backend string
	Schema  string

	// ConfigPath names an explicit config file; empty reads .shelf.json
	// from WorkDir when it exists.
	ConfigPath string

	// WorkDir is where the default config file is looked up. Empty means
	// the process working directory.
	WorkDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the shelf CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	defaults := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "shelf",
		Short: "shelf - an offline-first record store",
		Long: `shelf keeps attribute records in named tables on a local key-value host,
queries them with filters, associations, ordering and bounds, and reconciles
temporary client ids with the ids a server assigns later.

Settings come from built-in defaults, then .shelf.json (JSON with comments
allowed), then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", defaults.Format, "output format (json|text)")
	flags.StringVar(&opts.DB, "db", defaults.DB, "path of the database file")
	flags.StringVar(&opts.Backend, "backend", defaults.Backend, fmt.Sprintf("key-value host (%s)", strings.Join(kv.Backends(), "|")))
	flags.StringVar(&opts.Schema, "schema", "", "CUE association schema (file or directory)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+ConfigFileName+" when present)")

	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve layers the config file under the flags the user set.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	workDir := o.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to determine working directory", err)
		}
		workDir = wd
	}

	cfg, path, err := LoadConfig(workDir, o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("db") {
		o.DB = cfg.DB
	}
	if !flags.Changed("backend") {
		o.Backend = cfg.Backend
	}
	if !flags.Changed("schema") {
		o.Schema = cfg.Schema
	}
	if !flags.Changed("format") {
		o.Format = cfg.Format
	}

	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if !slices.Contains(kv.Backends(), o.Backend) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid backend %q: must be one of %v", o.Backend, kv.Backends()))
	}
	if path != "" {
		o.logger(cmd.ErrOrStderr()).Debug("config loaded", "path", path)
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes text logs to w at Info, or Debug with --verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore opens the configured host and wraps it in a durable store. The
// returned close function releases the host.
func (o *RootOptions) openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	logger := o.logger(cmd.ErrOrStderr())

	host, err := kv.Open(o.Backend, o.DB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database opened", "backend", o.Backend, "path", o.DB)

	closeFn := func() {
		if err := host.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}
	return store.NewDurable(host, store.WithLogger(logger)), closeFn, nil
}

// loadSchema loads --schema, or returns nil when none is configured.
func (o *RootOptions) loadSchema() (*schema.Schema, error) {
	if o.Schema == "" {
		return nil, nil
	}
	sch, err := schema.Load(o.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	return sch, nil
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
