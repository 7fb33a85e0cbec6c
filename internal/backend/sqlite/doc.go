// Package sqlite provides a relational Backend on SQLite.
//
// All kinds share one table, records, keyed by (kind, persistent_id).
// Saves are upserts that only touch a row when its content hash changes,
// so re-persisting an unchanged working set is a read-only operation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema version is tracked in PRAGMA user_version and migrated
// forward on Open.
package sqlite
