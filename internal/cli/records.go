package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/form"
	"github.com/roach88/roster/internal/record"
)

// withController opens the store, runs fn with a controller over it and
// closes the store. Open failures are reported like any other store error.
func (o *RootOptions) withController(f *OutputFormatter, fn func(ctrl *form.Controller, cols record.Columns) error) error {
	st, err := o.openStore()
	if err != nil {
		return o.fail(f, err)
	}
	defer st.Close()
	return fn(form.NewController(st), st.Columns())
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var field1, field2 string

	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add a student record",
		Long: `Add a student record. The id must not already exist.

Scores are optional; --field1 and --field2 fill the first and second score
columns.

Examples:
  roster add S100 "Alice Smith" --field1 95 --field2 88
  roster add S200 Bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			if err := rootOpts.authorize(); err != nil {
				return rootOpts.fail(f, err)
			}
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				rec, err := ctrl.Enroll(ctx, form.Input{ID: args[0], Name: args[1], Field1: field1, Field2: field2})
				if err != nil {
					return rootOpts.fail(f, err)
				}
				if f.Format == "json" {
					return f.Success(recordView{cols: cols, rec: rec})
				}
				return f.Success(fmt.Sprintf("added %s", rec.ID))
			})
		},
	}

	cmd.Flags().StringVar(&field1, "field1", "", "first score")
	cmd.Flags().StringVar(&field2, "field2", "", "second score")
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one student record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				rec, ok, err := ctrl.Query(ctx, args[0])
				if err != nil {
					return rootOpts.fail(f, err)
				}
				if !ok {
					return rootOpts.notFound(f, record.NormalizeID(args[0]))
				}
				return f.Success(recordView{cols: cols, rec: rec})
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all student records sorted by id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				records, err := ctrl.List(ctx)
				if err != nil {
					return rootOpts.fail(f, err)
				}
				return f.Success(recordTable{cols: cols, records: records})
			})
		},
	}
}

// patchFlags registers --name/--field1/--field2 and builds a form.Patch
// from the flags the user actually set.
type patchFlags struct {
	name, field1, field2 string
}

func (p *patchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.name, "name", "", "student name")
	cmd.Flags().StringVar(&p.field1, "field1", "", `first score ("" clears it)`)
	cmd.Flags().StringVar(&p.field2, "field2", "", `second score ("" clears it)`)
}

func (p *patchFlags) patch(cmd *cobra.Command) form.Patch {
	var fp form.Patch
	if cmd.Flags().Changed("name") {
		fp.Name = &p.name
	}
	if cmd.Flags().Changed("field1") {
		fp.Field1 = &p.field1
	}
	if cmd.Flags().Changed("field2") {
		fp.Field2 = &p.field2
	}
	return fp
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	pf := &patchFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an existing student record",
		Long: `Change fields of an existing student record. Only the flags given are
applied; pass an empty value to clear a score.

Examples:
  roster update S100 --field2 91
  roster update S100 --name "Alice Jones" --field1 ""`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			p := pf.patch(cmd)
			if p.IsEmpty() {
				return rootOpts.reportErr(f, CodeGeneric, ExitCommandError, "nothing to update: pass --name, --field1 or --field2", nil)
			}
			if err := rootOpts.authorize(); err != nil {
				return rootOpts.fail(f, err)
			}
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				ok, err := ctrl.Update(ctx, args[0], p)
				if err != nil {
					return rootOpts.fail(f, err)
				}
				id := record.NormalizeID(args[0])
				if !ok {
					return rootOpts.notFound(f, id)
				}
				return f.Success(message{Text: fmt.Sprintf("updated %s", id), Fields: map[string]any{"id": id}})
			})
		},
	}

	pf.register(cmd)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Remove a student record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			if err := rootOpts.authorize(); err != nil {
				return rootOpts.fail(f, err)
			}
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				ok, err := ctrl.Delete(ctx, args[0])
				if err != nil {
					return rootOpts.fail(f, err)
				}
				id := record.NormalizeID(args[0])
				if !ok {
					return rootOpts.notFound(f, id)
				}
				return f.Success(message{Text: fmt.Sprintf("deleted %s", id), Fields: map[string]any{"id": id}})
			})
		},
	}
}

// NewUpsertCommand creates the upsert command.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	pf := &patchFlags{}

	cmd := &cobra.Command{
		Use:   "upsert <id>",
		Short: "Create a student record or change an existing one",
		Long: `Create the record when the id is absent, otherwise apply the given
fields to the existing record.

Example:
  roster upsert S100 --name "Alice Smith" --field1 95`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := rootOpts.begin(cmd)
			if err := rootOpts.authorize(); err != nil {
				return rootOpts.fail(f, err)
			}
			return rootOpts.withController(f, func(ctrl *form.Controller, cols record.Columns) error {
				created, err := ctrl.Upsert(ctx, args[0], pf.patch(cmd))
				if err != nil {
					return rootOpts.fail(f, err)
				}
				id := record.NormalizeID(args[0])
				verb := "updated"
				if created {
					verb = "created"
				}
				return f.Success(message{
					Text:   fmt.Sprintf("%s %s", verb, id),
					Fields: map[string]any{"id": id, "created": created},
				})
			})
		},
	}

	pf.register(cmd)
	return cmd
}
