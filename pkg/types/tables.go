package types

// SQLite table names.
const (
	ObservationsTable       = "observations"
	ProjectsTable           = "projects"
	ActionsTable            = "actions"
	ActionObservationsTable = "action_observations"
)

// StandardTableNames lists all tables in creation order.
var StandardTableNames = []string{
	ObservationsTable,
	ProjectsTable,
	ActionsTable,
	ActionObservationsTable,
}
