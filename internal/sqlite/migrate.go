package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/friction/pkg/types"
)

// legacyStatusColumn is the observations column that predates dispositions.
const legacyStatusColumn = "status"

// legacyDispositions maps the old status values onto dispositions. Values
// not listed are kept as they are.
var legacyDispositions = map[string]string{
	"observed":          types.DispositionOpen,
	"pattern_confirmed": types.DispositionOpen,
	"solution_designed": types.DispositionOpen,
	"automated":         types.DispositionAddressed,
}

// legacyAddedColumns are observations columns that a legacy table may lack.
var legacyAddedColumns = []struct {
	name       string
	definition string
}{
	{name: "tags", definition: "TEXT"},
	{name: "source", definition: "TEXT NOT NULL DEFAULT 'human'"},
	{name: "project", definition: "TEXT"},
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// migrate converts a legacy observations table in one transaction: the
// status column is renamed to disposition, its values are remapped, and
// missing columns are added. Any failure rolls back and is returned
// wrapped in types.ErrMigrationFailed. Without the legacy column it is a
// no-op.
func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	cols, err := tableColumns(ctx, db, types.ObservationsTable)
	if err != nil {
		return fmt.Errorf("%w: inspecting observations: %w", types.ErrMigrationFailed, err)
	}
	if !cols[legacyStatusColumn] {
		logger.Debug("observations schema is current")
		return nil
	}

	logger.Info("migrating legacy observations schema", "column", legacyStatusColumn)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", types.ErrMigrationFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "ALTER TABLE observations RENAME COLUMN status TO disposition"); err != nil {
		return fmt.Errorf("%w: renaming status column: %w", types.ErrMigrationFailed, err)
	}

	var remapped int64
	for legacy, current := range legacyDispositions {
		res, err := tx.ExecContext(ctx,
			"UPDATE observations SET disposition = ? WHERE disposition = ?",
			current, legacy,
		)
		if err != nil {
			return fmt.Errorf("%w: remapping %q: %w", types.ErrMigrationFailed, legacy, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: remapping %q: %w", types.ErrMigrationFailed, legacy, err)
		}
		remapped += n
	}

	for _, c := range legacyAddedColumns {
		if cols[c.name] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "ALTER TABLE observations ADD COLUMN "+c.name+" "+c.definition); err != nil {
			return fmt.Errorf("%w: adding column %s: %w", types.ErrMigrationFailed, c.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", types.ErrMigrationFailed, err)
	}

	logger.Info("legacy observations migrated", "remapped", remapped)
	return nil
}

// tableColumns returns the set of column names of a table. table must be
// one of the fixed table names.
func tableColumns(ctx context.Context, q queryer, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
