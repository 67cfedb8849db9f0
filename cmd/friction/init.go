package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and the database",
		Long: `Write a default config.yaml to the configuration directory if none exists,
then create the database and apply any pending schema migration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := filepath.Join(a.configDir, configFileExt)
			written, err := writeConfigIfMissing(configPath, a.flags.dataDir)
			if err != nil {
				return sysError(err)
			}
			if written {
				reloaded, err := loadConfig(a.configDir)
				if err != nil {
					return sysError(err)
				}
				a.cfg = reloaded
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			path := backend.Path()
			if err := backend.Detach(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}

			w := cmd.OutOrStdout()
			if written {
				fmt.Fprintf(w, "Wrote %s\n", configPath)
			}
			fmt.Fprintf(w, "Database ready at %s\n", path)
			return nil
		},
	}
}
