package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/config"
	"github.com/roach88/roster/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	User       string
	Password   string

	// OpIDs generates the trace_id reported with every command.
	// Defaults to UUIDv7.
	OpIDs store.OpIDGenerator

	// LogWriter receives structured logs. Defaults to stderr.
	LogWriter io.Writer

	// Populated by PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the roster CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.OpIDs == nil {
		opts.OpIDs = store.UUIDv7Generator{}
	}
	if opts.LogWriter == nil {
		opts.LogWriter = os.Stderr
	}
	opts.v = config.NewViper()

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "roster - student record keeping",
		Long: `Keep student records (id, name and two scores) in a CSV file or SQLite
database. Identifiers are unique; list output is sorted by id.

Configuration is read from --config, ROSTER_* environment variables and
flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.v, opts.ConfigFile)
			if err != nil {
				return opts.reportErr(opts.formatter(cmd, ""), CodeConfig, ExitCommandError, err.Error(), err)
			}
			opts.Config = cfg
			opts.Logger = newLogger(opts.LogWriter, cfg.Log, opts.Verbose)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (YAML)")
	pf.String("store", "", "path of the backing store (default stu.csv)")
	pf.String("backend", "", "storage backend (csv|sqlite|memory)")
	pf.StringVar(&opts.User, "user", "", "admin username")
	pf.StringVar(&opts.Password, "password", "", "admin password")

	// Lookup cannot fail for flags defined above.
	_ = opts.v.BindPFlag(config.KeyStorePath, pf.Lookup("store"))
	_ = opts.v.BindPFlag(config.KeyStoreBackend, pf.Lookup("backend"))

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewUpsertCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code. Errors that were
// not already written by a command are printed to stderr.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if !IsReported(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Cobra usage errors and the like.
	return ExitCommandError
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// logger returns the configured logger, or one that discards everything
// when the command runs without the root pre-run.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command, traceID string) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		TraceID:   traceID,
	}
}

// begin starts one operation: it allocates the op ID that correlates logs
// and output, and returns a context carrying it.
func (o *RootOptions) begin(cmd *cobra.Command) (context.Context, *OutputFormatter) {
	opID := o.OpIDs.Generate()
	return store.WithOpID(cmd.Context(), opID), o.formatter(cmd, opID)
}

// openStore opens the configured backing store.
func (o *RootOptions) openStore() (*store.Store, error) {
	cfg := o.Config
	return store.Open(cfg.Store.Backend, cfg.Store.Path, cfg.Columns(),
		store.WithLogger(o.logger()),
		store.WithOpIDGenerator(o.OpIDs),
	)
}

// authorize checks --user/--password against the configured admin. It is a
// no-op when no admin password is configured.
func (o *RootOptions) authorize() error {
	a := auth.New(o.Config.Admin.Username, o.Config.Admin.Password)
	if err := a.Verify(o.User, o.Password); err != nil {
		o.logger().Warn("authorization failed", "user", o.User)
		return err
	}
	return nil
}
