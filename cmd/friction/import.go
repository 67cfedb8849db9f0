package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/friction/internal/export"
	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

// importResult counts what an import added to the store.
type importResult struct {
	Projects       int `json:"projects"`
	Observations   int `json:"observations"`
	Actions        int `json:"actions"`
	SkippedActions int `json:"skipped_actions"`
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSONL dump written by export",
		Long: `Import reads a dump produced by "export --format jsonl" and adds its
projects, observations, and actions to the store. Records get new ids and
timestamps; action links follow their observations to the new ids. An
action whose observations are all missing from the dump is skipped.

Example:
  friction export --format jsonl --output backup.jsonl
  friction --data-dir ./restored import backup.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := export.ReadSnapshot(args[0])
			if err != nil {
				return userError(err)
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			res, err := importSnapshot(cmd.Context(), backend, snap)
			if err != nil {
				return storeError(err)
			}
			a.logger.Info("import finished", "path", args[0],
				"observations", res.Observations, "actions", res.Actions)

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, res)
			}
			fmt.Fprintf(w, "Imported %d projects, %d observations, %d actions\n",
				res.Projects, res.Observations, res.Actions)
			if res.SkippedActions > 0 {
				fmt.Fprintf(w, "Skipped %d actions with no imported observations\n", res.SkippedActions)
			}
			return nil
		},
	}
}

// importSnapshot adds snap to the store oldest first so new ids keep the
// dump's relative order. Projects that already exist are not counted.
func importSnapshot(ctx context.Context, backend *sqlite.Backend, snap export.Snapshot) (importResult, error) {
	var res importResult

	names := make([]string, 0, len(snap.Projects))
	for _, p := range snap.Projects {
		names = append(names, p.Name)
	}
	created, err := sqlite.NewProjects(backend).CreateBulk(ctx, names)
	if err != nil {
		return res, fmt.Errorf("importing projects: %w", err)
	}
	res.Projects = len(created)

	observations := sqlite.NewObservations(backend)
	byOldID := make(map[int64]int64, len(snap.Observations))
	for _, o := range sortedByID(snap.Observations, func(o types.Observation) int64 { return o.ID }) {
		added, err := observations.Create(ctx, o.Text, o.Source, o.ProjectName())
		if err != nil {
			return res, fmt.Errorf("importing observation %d: %w", o.ID, err)
		}
		if o.Disposition != "" && o.Disposition != added.Disposition {
			d := o.Disposition
			if _, err := observations.Update(ctx, added.ID, types.ObservationUpdate{Disposition: &d}); err != nil {
				return res, fmt.Errorf("importing observation %d: %w", o.ID, err)
			}
		}
		byOldID[o.ID] = added.ID
		res.Observations++
	}

	actions := sqlite.NewActions(backend)
	for _, act := range sortedByID(snap.Actions, func(a types.ActionWithLinks) int64 { return a.ID }) {
		var linked []int64
		for _, id := range act.ObservationIDs {
			if newID, ok := byOldID[id]; ok {
				linked = append(linked, newID)
			}
		}
		if len(linked) == 0 {
			res.SkippedActions++
			continue
		}

		in := types.NewAction{
			Description:    act.Description,
			ObservationIDs: linked,
			Source:         act.Source,
		}
		if act.Reference != nil {
			in.Reference = *act.Reference
		}
		if act.Project != nil {
			in.Project = *act.Project
		}
		if _, err := actions.Create(ctx, in); err != nil {
			return res, fmt.Errorf("importing action %d: %w", act.ID, err)
		}
		res.Actions++
	}
	return res, nil
}

func sortedByID[T any](items []T, id func(T) int64) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		switch {
		case id(a) < id(b):
			return -1
		case id(a) > id(b):
			return 1
		}
		return 0
	})
	return out
}
