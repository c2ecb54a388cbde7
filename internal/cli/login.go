package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/auth"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check admin credentials",
		Long: `Check --user and --password against the configured admin.

When admin.password is set, add, update, delete, upsert and import require
the same credentials.

Example:
  ROSTER_ADMIN_PASSWORD=secret roster login --user admin --password secret`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, f := rootOpts.begin(cmd)
			if !auth.New(rootOpts.Config.Admin.Username, rootOpts.Config.Admin.Password).Enabled() {
				return f.Success(message{
					Text:   "no admin password configured; all commands are allowed",
					Fields: map[string]any{"auth": false},
				})
			}
			if err := rootOpts.authorize(); err != nil {
				return rootOpts.fail(f, err)
			}
			return f.Success(message{
				Text:   "login succeeded",
				Fields: map[string]any{"auth": true, "user": rootOpts.User},
			})
		},
	}
}
