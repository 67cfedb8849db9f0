package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

func newObserveCmd(a *app) *cobra.Command {
	var source, project string

	cmd := &cobra.Command{
		Use:   "observe <text>",
		Short: "Record a friction observation",
		Long: `Record a new observation. Every observation starts with the "open"
disposition. A project given with --project is added to the registry.

Example:
  friction observe "CI takes 20 minutes on a one-line change" --project acme/widgets`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			obs, err := sqlite.NewObservations(backend).Create(cmd.Context(), text, strings.TrimSpace(source), strings.TrimSpace(project))
			if err != nil {
				return storeError(err)
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), obs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded observation #%d\n", obs.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "who observed it (default: human)")
	cmd.Flags().StringVar(&project, "project", "", "owner/repo the observation concerns")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var filter types.ObservationFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List observations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Disposition = strings.TrimSpace(filter.Disposition)
			filter.Source = strings.TrimSpace(filter.Source)
			filter.Project = strings.TrimSpace(filter.Project)
			if filter.Disposition != "" && !types.ValidDisposition(filter.Disposition) {
				return userError(fmt.Errorf("%w %q (valid: %s)", types.ErrInvalidDisposition, filter.Disposition, strings.Join(types.Dispositions, ", ")))
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			list, err := sqlite.NewObservations(backend).List(cmd.Context(), filter)
			if err != nil {
				return storeError(err)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(w, "No observations.")
				return nil
			}
			for _, o := range list {
				printObservation(w, o)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Disposition, "disposition", "", "only this disposition")
	cmd.Flags().StringVar(&filter.Source, "source", "", "only this source")
	cmd.Flags().StringVar(&filter.Project, "project", "", "only this project")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display an observation and the actions linked to it",
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

			ctx := cmd.Context()
			obs, err := sqlite.NewObservations(backend).Get(ctx, id)
			if err != nil {
				return storeError(fmt.Errorf("observation #%d: %w", id, err))
			}
			actions, err := sqlite.NewActions(backend).ListForObservation(ctx, id)
			if err != nil {
				return storeError(err)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, map[string]any{
					"observation": obs,
					"actions":     actions,
				})
			}
			printObservation(w, *obs)
			for _, act := range actions {
				printAction(w, act, nil)
			}
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var text, source, disposition, project string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an observation's text, source, disposition, or project",
		Long: `Update the fields given as flags. An empty --project clears the project.

Example:
  friction update 12 --disposition addressed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var u types.ObservationUpdate
			flags := cmd.Flags()
			if flags.Changed("text") {
				u.Text = trimmed(text)
			}
			if flags.Changed("source") {
				u.Source = trimmed(source)
			}
			if flags.Changed("disposition") {
				u.Disposition = trimmed(disposition)
			}
			if flags.Changed("project") {
				u.Project = trimmed(project)
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			obs, err := sqlite.NewObservations(backend).Update(cmd.Context(), id, u)
			if err != nil {
				return storeError(fmt.Errorf("observation #%d: %w", id, err))
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), obs)
			}
			printObservation(cmd.OutOrStdout(), *obs)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringVar(&source, "source", "", "new source")
	cmd.Flags().StringVar(&disposition, "disposition", "", "new disposition: "+strings.Join(types.Dispositions, ", "))
	cmd.Flags().StringVar(&project, "project", "", "new project; empty clears it")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an observation and its action links",
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

			deleted, err := sqlite.NewObservations(backend).Delete(cmd.Context(), id)
			if err != nil {
				return storeError(err)
			}
			if !deleted {
				return userError(fmt.Errorf("observation #%d: %w", id, types.ErrNotFound))
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted observation #%d\n", id)
			return nil
		},
	}
}

func trimmed(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
