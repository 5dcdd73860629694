// Package store is the database collaborator of the mapping engine.
//
// A Store wraps a *sql.DB opened through one of the registered drivers and
// satisfies command.Executor. It also creates the tables of mapped record
// types and records what it created.
//
// # Drivers
//
//   - sqlite3: github.com/mattn/go-sqlite3 (cgo)
//   - sqlite: modernc.org/sqlite (pure Go)
//   - postgres: github.com/lib/pq
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection; an open reader holds it until closed
//
// # Migrations
//
// Migrate creates tables in foreign-key dependency order, then their
// indexes, inside one transaction. Each created table gets a row in
// relmap_schema holding the fingerprint of its mapped shape (see
// internal/ir). A later Migrate with a changed shape fails with
// ErrSchemaDrift rather than altering the table.
package store
