// Package types defines the entities, filters, configuration, and standard
// errors shared by the friction store, scanner, and adapters.
//
// Observations record a piece of engineering friction and carry a
// disposition. Actions are an append-only log of remediation work linked to
// one or more observations. Projects are a name index used by both; the
// reference is by name and is never enforced as a foreign key.
package types
