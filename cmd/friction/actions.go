package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

func newActCmd(a *app) *cobra.Command {
	var (
		observationIDs []int64
		source         string
		reference      string
		project        string
	)

	cmd := &cobra.Command{
		Use:   "act <description>",
		Short: "Record an action taken to address observations",
		Long: `Record an action and link it to one or more observations. Actions are
never edited; record a new one instead.

Example:
  friction act "Cache module downloads in CI" --observation 3,7 --reference "PR #41"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := types.NewAction{
				Description:    strings.TrimSpace(strings.Join(args, " ")),
				ObservationIDs: observationIDs,
				Source:         strings.TrimSpace(source),
				Reference:      strings.TrimSpace(reference),
				Project:        strings.TrimSpace(project),
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			action, err := sqlite.NewActions(backend).Create(cmd.Context(), in)
			if err != nil {
				return storeError(err)
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), action)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded action #%d for %s\n", action.ID, joinIDs(action.ObservationIDs))
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&observationIDs, "observation", nil, "observation ids the action addresses (repeatable or comma-separated)")
	cmd.Flags().StringVar(&source, "source", "", "who took the action (default: human)")
	cmd.Flags().StringVar(&reference, "reference", "", "commit, PR, or ticket reference")
	cmd.Flags().StringVar(&project, "project", "", "owner/repo the action was taken in")
	return cmd
}

func newActionsCmd(a *app) *cobra.Command {
	var filter types.ActionFilter

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List recorded actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Project = strings.TrimSpace(filter.Project)
			if filter.ObservationID < 0 {
				return userError(fmt.Errorf("invalid observation id %d", filter.ObservationID))
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			list, err := sqlite.NewActions(backend).List(cmd.Context(), filter)
			if err != nil {
				return storeError(err)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(w, "No actions.")
				return nil
			}
			for _, act := range list {
				printAction(w, act.Action, act.ObservationIDs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Project, "project", "", "only this project")
	cmd.Flags().Int64Var(&filter.ObservationID, "observation", 0, "only actions linked to this observation")
	return cmd
}
