package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// whereBuilder accumulates AND-ed predicate clauses and their bound
// arguments. Column names come from fixed identifiers in this package;
// values are always bound, never formatted into the SQL text.
type whereBuilder struct {
	clauses []string
	args    []any
}

// eq adds "column = ?".
func (w *whereBuilder) eq(column string, value any) {
	w.clauses = append(w.clauses, column+" = ?")
	w.args = append(w.args, value)
}

// cond adds an arbitrary clause with its arguments.
func (w *whereBuilder) cond(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// eqString adds "column = ?" when value is non-empty.
func (w *whereBuilder) eqString(column, value string) {
	if value != "" {
		w.eq(column, value)
	}
}

// in adds "column IN (?, ...)". An empty set matches nothing.
func (w *whereBuilder) in(column string, values []int64) {
	if len(values) == 0 {
		w.clauses = append(w.clauses, "0")
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		w.args = append(w.args, v)
	}
	w.clauses = append(w.clauses, column+" IN ("+strings.Join(placeholders, ", ")+")")
}

// sql returns the WHERE clause, or "" when no predicate was added.
func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// timestampLayouts are the accepted stored timestamp forms. Rows written
// by this package use the first; older databases may hold the others.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp parses a stored timestamp as UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// nullableString converts an empty string to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// stringPtr converts a nullable column value to *string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
