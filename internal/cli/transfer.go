package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/export"
	"github.com/roach88/roster/internal/form"
	"github.com/roach88/roster/internal/record"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write all records to a spreadsheet",
		Long: `Write all records, sorted by id, to an .xlsx or .csv file. The format is
chosen by the file extension.

Example:
  roster export roster.xlsx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			path := args[0]
			if _, err := export.FormatFromPath(path); err != nil {
				return rootOpts.reportErr(f, CodeGeneric, ExitCommandError, err.Error(), err)
			}
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				records, err := ctrl.List(ctx)
				if err != nil {
					return rootOpts.fail(f, err)
				}
				f.VerboseLog("writing %d records to %s", len(records), path)
				if err := export.WriteFile(path, cols, records); err != nil {
					return rootOpts.reportErr(f, CodeStorage, ExitCommandError, fmt.Sprintf("export failed: %v", err), err)
				}
				return f.Success(message{
					Text:   fmt.Sprintf("exported %d records to %s", len(records), path),
					Fields: map[string]any{"count": len(records), "path": path},
				})
			})
		},
	}
}

// importSummary is the payload of a finished import.
type importSummary struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Failures []string `json:"failures"`
}

func (s importSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "imported: %d created, %d updated, %d failed", s.Created, s.Updated, len(s.Failures))
	for _, msg := range s.Failures {
		fmt.Fprintf(&b, "\n  %s", msg)
	}
	return b.String()
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert records from a spreadsheet",
		Long: `Read rows from an .xlsx or .csv file whose header matches the store and
upsert each one. Rows that fail validation are listed and skipped; a storage
failure stops the import.

Exit codes:
  0 - Every row imported
  1 - One or more rows rejected
  2 - Unreadable file or storage failure

Example:
  roster import roster.xlsx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			if err := rootOpts.authorize(); err != nil {
				return rootOpts.fail(f, err)
			}
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				rows, err := export.ReadFile(args[0], cols)
				if err != nil {
					return rootOpts.reportErr(f, CodeGeneric, ExitCommandError, fmt.Sprintf("import failed: %v", err), err)
				}
				f.VerboseLog("read %d rows from %s", len(rows), args[0])

				rep, err := export.Import(ctx, ctrl, rows)
				if err != nil {
					return rootOpts.fail(f, err)
				}

				summary := importSummary{Created: rep.Created, Updated: rep.Updated, Failures: []string{}}
				for _, fe := range rep.Failures {
					summary.Failures = append(summary.Failures, fe.Error())
				}
				if err := f.Success(summary); err != nil {
					return err
				}
				if len(summary.Failures) > 0 {
					return &ExitError{
						Code:     ExitFailure,
						Message:  fmt.Sprintf("%d row(s) rejected", len(summary.Failures)),
						Reported: true,
					}
				}
				return nil
			})
		},
	}
}
