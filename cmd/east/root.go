package main

import (
	"github.com/spf13/cobra"
)

const version = "0.2.0"

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "east",
		Short: "Apply and roll back database migrations",
		Long: `east tracks which migrations have been executed against a database and
runs the remaining ones in order, stopping at the first failure.

Migrations are SQL files named <epoch-millis>_<label>.sql with
"-- +migrate up" and "-- +migrate down" sections.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	if a.in != nil {
		cmd.SetIn(a.in)
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	a.flags.register(cmd.PersistentFlags())

	cmd.AddCommand(
		newCreateCmd(a),
		newMigrateCmd(a),
		newRollbackCmd(a),
		newListCmd(a),
	)
	return cmd
}
