// Package queue persists transcoding job status records and enforces their
// lifecycle.
//
// A record is keyed by job name and moves Pending -> Processing -> Success or
// Failed. Terminal states never change; an operator retry starts a new
// attempt with a fresh Pending record instead of rewinding the old one.
// Transitions are applied with conditional updates so the database, not the
// caller, decides whether a write is legal.
//
// Two backends satisfy StatusStore: Store (SQLite via modernc.org/sqlite, the
// default for a single host) and PostgresStore (pgx, for deployments that
// share status with other services). Schema changes bump schemaVersion;
// users clear the database to adopt the new schema.
package queue
