package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade a database created by an older release",
		Long: `Convert the legacy status column to dispositions. Attaching the database
already migrates it; this command runs the check explicitly and is a no-op
on a current schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Migrate(cmd.Context()); err != nil {
				return sysError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is current: %s\n", backend.Path())
			return nil
		},
	}
}
