package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/friction/pkg/types"
)

const observationColumns = "id, text, tags, source, disposition, project, created_at, updated_at"

// orderNewestFirst orders rows by creation time, breaking ties on id so
// rows written within the same second keep a stable order.
const orderNewestFirst = " ORDER BY created_at DESC, id DESC"

// Observations is the observation store.
type Observations struct {
	backend *Backend
}

// NewObservations returns the observation store backed by b.
func NewObservations(b *Backend) *Observations {
	return &Observations{backend: b}
}

// Create records a new open observation. A blank source is recorded as
// types.DefaultSource. A non-empty project is registered in the same
// transaction.
func (o *Observations) Create(ctx context.Context, text, source, project string) (*types.Observation, error) {
	if text == "" {
		return nil, types.ErrEmptyText
	}
	if source == "" {
		source = types.DefaultSource
	}

	var obs *types.Observation
	err := o.backend.withTx(ctx, func(tx *sql.Tx) error {
		if project != "" {
			if err := ensureProject(ctx, tx, project); err != nil {
				return err
			}
		}
		row := tx.QueryRowContext(ctx,
			"INSERT INTO observations (text, source, project) VALUES (?, ?, ?) RETURNING "+observationColumns,
			text, source, nullableString(project),
		)
		var err error
		obs, err = scanObservation(row)
		if err != nil {
			return fmt.Errorf("inserting observation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.backend.logger.Debug("observation created", "id", obs.ID, "source", obs.Source)
	return obs, nil
}

// Get returns the observation with the given id, or types.ErrNotFound.
func (o *Observations) Get(ctx context.Context, id int64) (*types.Observation, error) {
	db, err := o.backend.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+observationColumns+" FROM observations WHERE id = ?", id)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting observation %d: %w", id, err)
	}
	return obs, nil
}

// List returns the observations matching every non-empty filter field,
// newest first.
func (o *Observations) List(ctx context.Context, filter types.ObservationFilter) ([]types.Observation, error) {
	var w whereBuilder
	w.eqString("disposition", filter.Disposition)
	w.eqString("source", filter.Source)
	w.eqString("project", filter.Project)
	return o.query(ctx, w)
}

// GetByIDs returns the observations among ids that exist, newest first.
// Unknown ids are ignored.
func (o *Observations) GetByIDs(ctx context.Context, ids []int64) ([]types.Observation, error) {
	if len(ids) == 0 {
		return []types.Observation{}, nil
	}
	var w whereBuilder
	w.in("id", ids)
	return o.query(ctx, w)
}

func (o *Observations) query(ctx context.Context, w whereBuilder) ([]types.Observation, error) {
	db, err := o.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT "+observationColumns+" FROM observations"+w.sql()+orderNewestFirst, w.args...)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	observations := []types.Observation{}
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		observations = append(observations, *obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating observations: %w", err)
	}
	return observations, nil
}

// Update applies the provided fields of u to the observation and refreshes
// updated_at. It returns types.ErrNoUpdateFields without writing when u is
// empty, and types.ErrNotFound when id does not exist.
func (o *Observations) Update(ctx context.Context, id int64, u types.ObservationUpdate) (*types.Observation, error) {
	if u.Empty() {
		return nil, types.ErrNoUpdateFields
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	if u.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *u.Text)
	}
	if u.Source != nil {
		source := *u.Source
		if source == "" {
			source = types.DefaultSource
		}
		sets = append(sets, "source = ?")
		args = append(args, source)
	}
	if u.Disposition != nil {
		sets = append(sets, "disposition = ?")
		args = append(args, *u.Disposition)
	}
	if u.Project != nil {
		sets = append(sets, "project = ?")
		args = append(args, nullableString(*u.Project))
	}
	sets = append(sets, "updated_at = max(updated_at, "+nowExpr+")")
	args = append(args, id)

	var obs *types.Observation
	err := o.backend.withTx(ctx, func(tx *sql.Tx) error {
		if u.Project != nil && *u.Project != "" {
			if err := ensureProject(ctx, tx, *u.Project); err != nil {
				return err
			}
		}
		row := tx.QueryRowContext(ctx,
			"UPDATE observations SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING "+observationColumns,
			args...,
		)
		var err error
		obs, err = scanObservation(row)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("updating observation %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// Delete removes the observation and its action links, reporting whether
// the observation existed. The actions themselves are kept.
func (o *Observations) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := o.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM action_observations WHERE observation_id = ?", id); err != nil {
			return fmt.Errorf("deleting links of observation %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM observations WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting observation %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deleting observation %d: %w", id, err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// scanObservation hydrates one observations row selected with
// observationColumns.
func scanObservation(row rowScanner) (*types.Observation, error) {
	var (
		obs                  types.Observation
		tags, project        sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&obs.ID, &obs.Text, &tags, &obs.Source, &obs.Disposition, &project, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	obs.Tags = stringPtr(tags)
	obs.Project = stringPtr(project)

	var err error
	if obs.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if obs.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &obs, nil
}
