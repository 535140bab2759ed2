// Package sqlite persists harvest history in a local SQLite database
// using the pure-Go modernc.org/sqlite driver.
//
// The database lives at ~/.harvester/data/history.db. Schema changes are
// embedded migrations applied on open and tracked in schema_migrations.
// Fragments are stored as a JSON array so a result round-trips unchanged.
package sqlite
