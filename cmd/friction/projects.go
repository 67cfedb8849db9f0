package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage the project registry",
	}
	cmd.AddCommand(
		newProjectsListCmd(a),
		newProjectsAddCmd(a),
		newProjectsDeleteCmd(a),
		newProjectsScanCmd(a),
	)
	return cmd
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered projects by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			list, err := sqlite.NewProjects(backend).List(cmd.Context())
			if err != nil {
				return storeError(err)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, list)
			}
			for _, p := range list {
				printProject(w, p)
			}
			return nil
		},
	}
}

func newProjectsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <owner/repo>...",
		Short: "Register one or more projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, len(args))
			for i, arg := range args {
				names[i] = strings.TrimSpace(arg)
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			created, err := sqlite.NewProjects(backend).CreateBulk(cmd.Context(), names)
			if err != nil {
				return storeError(err)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, created)
			}
			fmt.Fprintf(w, "Registered %d new project(s)\n", len(created))
			for _, p := range created {
				printProject(w, p)
			}
			return nil
		},
	}
}

func newProjectsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a project from the registry",
		Long:  "Remove a project from the registry. Observations and actions naming it keep the name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			deleted, err := sqlite.NewProjects(backend).Delete(cmd.Context(), id)
			if err != nil {
				return storeError(err)
			}
			if !deleted {
				return userError(fmt.Errorf("project %d: %w", id, types.ErrNotFound))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %d\n", id)
			return nil
		},
	}
}

func newProjectsScanCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Register every repository found under a directory",
		Long: `Walk the directory tree for git repositories and register the owner/repo
name of each origin remote on the configured host (scan.host).

Example:
  friction projects scan ~/src`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.newScanner().Scan(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return sysError(err)
			}

			w := cmd.OutOrStdout()
			if dryRun {
				if a.flags.jsonMode {
					return printJSON(w, found)
				}
				for _, name := range found {
					fmt.Fprintln(w, name)
				}
				return nil
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			created, err := sqlite.NewProjects(backend).CreateBulk(cmd.Context(), found)
			if err != nil {
				return storeError(err)
			}

			if a.flags.jsonMode {
				return printJSON(w, map[string]any{"found": found, "created": created})
			}
			fmt.Fprintf(w, "Found %d project(s), registered %d new\n", len(found), len(created))
			for _, p := range created {
				printProject(w, p)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the names found without registering them")
	return cmd
}
