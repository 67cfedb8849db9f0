package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/friction/pkg/types"
)

const actionColumns = "id, description, source, reference, project, created_at"

// linkedToObservation restricts actions to those linked to one observation.
const linkedToObservation = "id IN (SELECT action_id FROM action_observations WHERE observation_id = ?)"

// Actions is the append-only action log.
type Actions struct {
	backend *Backend
}

// NewActions returns the action log backed by b.
func NewActions(b *Backend) *Actions {
	return &Actions{backend: b}
}

// Create records an action and links it to every observation in
// in.ObservationIDs. The action row, its links, and the project
// registration commit together or not at all. An id that names no
// observation fails with an error wrapping types.ErrNotFound.
func (a *Actions) Create(ctx context.Context, in types.NewAction) (*types.ActionWithLinks, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	source := in.Source
	if source == "" {
		source = types.DefaultSource
	}

	var action *types.Action
	err := a.backend.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range in.ObservationIDs {
			var one int
			err := tx.QueryRowContext(ctx, "SELECT 1 FROM observations WHERE id = ?", id).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("observation %d: %w", id, types.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("checking observation %d: %w", id, err)
			}
		}

		if in.Project != "" {
			if err := ensureProject(ctx, tx, in.Project); err != nil {
				return err
			}
		}

		row := tx.QueryRowContext(ctx,
			"INSERT INTO actions (description, source, reference, project) VALUES (?, ?, ?, ?) RETURNING "+actionColumns,
			in.Description, source, nullableString(in.Reference), nullableString(in.Project),
		)
		var err error
		action, err = scanAction(row)
		if err != nil {
			return fmt.Errorf("inserting action: %w", err)
		}

		for _, id := range in.ObservationIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO action_observations (action_id, observation_id) VALUES (?, ?)",
				action.ID, id,
			); err != nil {
				return fmt.Errorf("linking action %d to observation %d: %w", action.ID, id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.backend.logger.Debug("action recorded", "id", action.ID, "observations", len(in.ObservationIDs))
	return &types.ActionWithLinks{
		Action:         *action,
		ObservationIDs: append([]int64(nil), in.ObservationIDs...),
	}, nil
}

// List returns actions matching the filter, newest first, each with the
// ids of its linked observations in link order.
func (a *Actions) List(ctx context.Context, filter types.ActionFilter) ([]types.ActionWithLinks, error) {
	var w whereBuilder
	w.eqString("project", filter.Project)
	if filter.ObservationID != 0 {
		w.cond(linkedToObservation, filter.ObservationID)
	}

	actions, err := a.query(ctx, w)
	if err != nil {
		return nil, err
	}

	result := make([]types.ActionWithLinks, len(actions))
	if len(actions) == 0 {
		return result, nil
	}

	ids := make([]int64, len(actions))
	for i, action := range actions {
		ids[i] = action.ID
	}
	links, err := a.links(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, action := range actions {
		obsIDs := links[action.ID]
		if obsIDs == nil {
			obsIDs = []int64{}
		}
		result[i] = types.ActionWithLinks{Action: action, ObservationIDs: obsIDs}
	}
	return result, nil
}

// ListForObservation returns the actions linked to one observation, newest
// first, without their link lists. An unknown observation yields none.
func (a *Actions) ListForObservation(ctx context.Context, observationID int64) ([]types.Action, error) {
	var w whereBuilder
	w.cond(linkedToObservation, observationID)
	return a.query(ctx, w)
}

func (a *Actions) query(ctx context.Context, w whereBuilder) ([]types.Action, error) {
	db, err := a.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT "+actionColumns+" FROM actions"+w.sql()+orderNewestFirst, w.args...)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	actions := []types.Action{}
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		actions = append(actions, *action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actions: %w", err)
	}
	return actions, nil
}

// links maps each action id to its observation ids in link insertion order.
func (a *Actions) links(ctx context.Context, actionIDs []int64) (map[int64][]int64, error) {
	db, err := a.backend.conn()
	if err != nil {
		return nil, err
	}

	var w whereBuilder
	w.in("action_id", actionIDs)
	rows, err := db.QueryContext(ctx,
		"SELECT action_id, observation_id FROM action_observations"+w.sql()+" ORDER BY rowid",
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying action links: %w", err)
	}
	defer rows.Close()

	links := make(map[int64][]int64, len(actionIDs))
	for rows.Next() {
		var actionID, observationID int64
		if err := rows.Scan(&actionID, &observationID); err != nil {
			return nil, fmt.Errorf("scanning action link: %w", err)
		}
		links[actionID] = append(links[actionID], observationID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating action links: %w", err)
	}
	return links, nil
}

// scanAction hydrates one actions row selected with actionColumns.
func scanAction(row rowScanner) (*types.Action, error) {
	var (
		action             types.Action
		reference, project sql.NullString
		createdAt          string
	)
	if err := row.Scan(&action.ID, &action.Description, &action.Source, &reference, &project, &createdAt); err != nil {
		return nil, err
	}
	action.Reference = stringPtr(reference)
	action.Project = stringPtr(project)

	t, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	action.CreatedAt = t
	return &action, nil
}
