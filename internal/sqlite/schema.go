package sqlite

// nowExpr is the SQLite expression for the current UTC time at second
// precision. All timestamps are produced by the storage engine.
const nowExpr = `strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

// Schema DDL for all tables. Every statement is safe to run on each start.
const (
	createObservations = `CREATE TABLE IF NOT EXISTS observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT NOT NULL,
    tags TEXT,
    source TEXT NOT NULL DEFAULT 'human',
    disposition TEXT NOT NULL DEFAULT 'open',
    project TEXT,
    created_at TEXT NOT NULL DEFAULT (` + nowExpr + `),
    updated_at TEXT NOT NULL DEFAULT (` + nowExpr + `)
);`

	// Observations and actions name a project by convention only; there is
	// deliberately no foreign key to this table.
	createProjects = `CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL DEFAULT (` + nowExpr + `)
);`

	createActions = `CREATE TABLE IF NOT EXISTS actions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    description TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT 'human',
    reference TEXT,
    project TEXT,
    created_at TEXT NOT NULL DEFAULT (` + nowExpr + `)
);`

	createActionObservations = `CREATE TABLE IF NOT EXISTS action_observations (
    action_id INTEGER NOT NULL REFERENCES actions(id) ON DELETE CASCADE,
    observation_id INTEGER NOT NULL REFERENCES observations(id) ON DELETE CASCADE,
    PRIMARY KEY (action_id, observation_id)
);`
)

// Index DDL. Created after migration, since a legacy observations table
// has no disposition column until it is migrated.
const (
	idxObservationsDisposition = `CREATE INDEX IF NOT EXISTS idx_observations_disposition ON observations(disposition);`
	idxObservationsProject     = `CREATE INDEX IF NOT EXISTS idx_observations_project ON observations(project);`
	idxObservationsCreated     = `CREATE INDEX IF NOT EXISTS idx_observations_created ON observations(created_at);`
	idxActionsProject          = `CREATE INDEX IF NOT EXISTS idx_actions_project ON actions(project);`
	idxActionObservationsObs   = `CREATE INDEX IF NOT EXISTS idx_action_observations_observation ON action_observations(observation_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createObservations,
	createProjects,
	createActions,
	createActionObservations,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxObservationsDisposition,
	idxObservationsProject,
	idxObservationsCreated,
	idxActionsProject,
	idxActionObservationsObs,
}
