package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/friction/internal/export"
	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

const (
	formatMarkdown = "markdown"
	formatJSONL    = "jsonl"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
		filter types.ObservationFilter
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export observations and actions as Markdown or JSONL",
		Long: `Export writes a Markdown report grouped by disposition, or a JSONL dump
of projects, observations, and actions. Output goes to stdout unless
--output is given; JSONL files are replaced atomically.

Example:
  friction export --project acme/widgets > friction.md
  friction export --format jsonl --output backup.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != formatMarkdown && format != formatJSONL {
				return userError(fmt.Errorf("unknown format %q (valid: %s, %s)", format, formatMarkdown, formatJSONL))
			}
			filter.Disposition = strings.TrimSpace(filter.Disposition)
			if filter.Disposition != "" && !types.ValidDisposition(filter.Disposition) {
				return userError(fmt.Errorf("%w %q", types.ErrInvalidDisposition, filter.Disposition))
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			ctx := cmd.Context()
			observations, err := sqlite.NewObservations(backend).List(ctx, filter)
			if err != nil {
				return storeError(err)
			}
			actions, err := sqlite.NewActions(backend).List(ctx, types.ActionFilter{Project: filter.Project})
			if err != nil {
				return storeError(err)
			}

			if format == formatJSONL {
				projects, err := sqlite.NewProjects(backend).List(ctx)
				if err != nil {
					return storeError(err)
				}
				snap := export.Snapshot{Projects: projects, Observations: observations, Actions: actions}
				if output != "" {
					if err := export.WriteSnapshot(output, snap); err != nil {
						return sysError(err)
					}
					a.logger.Info("export written", "path", output, "format", format)
					return nil
				}
				records, err := export.Records(snap)
				if err != nil {
					return sysError(err)
				}
				for _, rec := range records {
					fmt.Fprintln(cmd.OutOrStdout(), string(rec))
				}
				return nil
			}

			var buf bytes.Buffer
			if err := export.Markdown(&buf, observations, actions); err != nil {
				return sysError(err)
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return sysError(fmt.Errorf("write %s: %w", output, err))
			}
			a.logger.Info("export written", "path", output, "format", format)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatMarkdown, "output format: markdown or jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&filter.Disposition, "disposition", "", "only this disposition")
	cmd.Flags().StringVar(&filter.Source, "source", "", "only this source")
	cmd.Flags().StringVar(&filter.Project, "project", "", "only this project")
	return cmd
}
