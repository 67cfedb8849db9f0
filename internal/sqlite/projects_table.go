package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/friction/pkg/types"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Projects is the project registry. Names are unique; registering a name
// twice is never an error.
type Projects struct {
	backend *Backend
}

// NewProjects returns the registry backed by b.
func NewProjects(b *Backend) *Projects {
	return &Projects{backend: b}
}

// ensureProject inserts name if absent. It is used inside the observation
// and action transactions so that a referenced project is always registered.
func ensureProject(ctx context.Context, ex execer, name string) error {
	if name == "" {
		return types.ErrEmptyName
	}
	if _, err := ex.ExecContext(ctx,
		"INSERT INTO projects (name) VALUES (?) ON CONFLICT(name) DO NOTHING",
		name,
	); err != nil {
		return fmt.Errorf("ensuring project %q: %w", name, err)
	}
	return nil
}

// Ensure registers name if it is not already registered.
func (p *Projects) Ensure(ctx context.Context, name string) error {
	db, err := p.backend.conn()
	if err != nil {
		return err
	}
	return ensureProject(ctx, db, name)
}

// Create registers name and returns its row. When the name already exists
// the existing row is returned.
func (p *Projects) Create(ctx context.Context, name string) (*types.Project, error) {
	if name == "" {
		return nil, types.ErrEmptyName
	}

	var project *types.Project
	err := p.backend.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureProject(ctx, tx, name); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx,
			"SELECT id, name, created_at FROM projects WHERE name = ?", name,
		)
		var err error
		project, err = scanProject(row)
		if err != nil {
			return fmt.Errorf("reading project %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// CreateBulk registers every name and returns only the rows inserted by
// this call, in input order. A name repeated within names is inserted once.
// Any empty name rejects the whole batch with ErrEmptyName.
func (p *Projects) CreateBulk(ctx context.Context, names []string) ([]types.Project, error) {
	for _, name := range names {
		if name == "" {
			return nil, types.ErrEmptyName
		}
	}

	created := []types.Project{}
	if len(names) == 0 {
		return created, nil
	}

	err := p.backend.withTx(ctx, func(tx *sql.Tx) error {
		for _, name := range names {
			row := tx.QueryRowContext(ctx,
				"INSERT INTO projects (name) VALUES (?) ON CONFLICT(name) DO NOTHING RETURNING id, name, created_at",
				name,
			)
			project, err := scanProject(row)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("inserting project %q: %w", name, err)
			}
			created = append(created, *project)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.backend.logger.Debug("projects registered", "requested", len(names), "created", len(created))
	return created, nil
}

// List returns all projects ordered by name.
func (p *Projects) List(ctx context.Context) ([]types.Project, error) {
	db, err := p.backend.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id, name, created_at FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// Delete removes the project with the given id and reports whether a row
// was removed. Observations and actions naming the project are untouched.
func (p *Projects) Delete(ctx context.Context, id int64) (bool, error) {
	db, err := p.backend.conn()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting project %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting project %d: %w", id, err)
	}
	return n > 0, nil
}

// scanProject hydrates one projects row.
func scanProject(row rowScanner) (*types.Project, error) {
	var (
		project   types.Project
		createdAt string
	)
	if err := row.Scan(&project.ID, &project.Name, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	project.CreatedAt = t
	return &project, nil
}
