// Package sqlite implements the embedded SQLite store for friction:
// schema creation and migration, the project registry, the observation
// store, and the action log.
//
// A single Backend is attached once at process start and passed to each
// component constructor (NewProjects, NewObservations, NewActions).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/friction/internal/logging"
	"github.com/mesh-intelligence/friction/pkg/types"
)

// pragmas are applied to every connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Backend owns the SQLite handle shared by all store components.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	path     string
	db       *sql.DB
	logger   *slog.Logger
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
// A nil logger discards log output.
func NewBackend(logger *slog.Logger) *Backend {
	return &Backend{logger: logging.OrDiscard(logger)}
}

// Attach opens the database file, creates missing tables, migrates legacy
// data, and creates indexes. A migration failure is returned wrapped in
// types.ErrMigrationFailed and leaves the backend detached.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	path := config.GetDBFile()
	if path != types.MemoryDBFile {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(dataDir, path)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the backend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("connecting to database: %w", err)
	}

	ctx := context.Background()
	if err := initializeSchema(ctx, db); err != nil {
		db.Close()
		return err
	}
	if err := migrate(ctx, db, b.logger); err != nil {
		db.Close()
		return err
	}
	if err := createIndexes(ctx, db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.path = path
	b.attached = true

	b.logger.Debug("database attached", "path", path)
	return nil
}

// Detach closes the database handle. After Detach, all operations return
// ErrBackendDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}

// Path returns the database file path, or ":memory:".
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Migrate re-runs the legacy schema migration on the attached database.
// It is a no-op once the legacy column is gone.
func (b *Backend) Migrate(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	return migrate(ctx, db, b.logger)
}

// conn returns the live handle or ErrBackendDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.db, nil
}

// withTx runs fn inside a transaction. Any error from fn rolls back.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// dsn appends the connection pragmas to a database path.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// initializeSchema creates any missing tables.
func initializeSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// createIndexes creates any missing indexes.
func createIndexes(ctx context.Context, db *sql.DB) error {
	for _, stmt := range indexDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
