// Package store persists named JSON records in a small key-value table.
//
// SQLite (modernc.org/sqlite) is the default backend; Postgres (lib/pq) lets
// several embyscout instances share one server and site list. Records are
// read and written whole, so callers never see a partially applied mutation.
//
// The schema is versioned in schema.go. When the table layout changes, bump
// schemaVersion; users delete the database file to adopt the new layout.
package store
