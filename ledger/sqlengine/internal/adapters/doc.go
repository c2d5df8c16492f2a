// Package adapters provide database adapter implementations for the SQL ledger engine.
//
// This package implements the adapter pattern to support multiple database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface including transactions, allowing the ledger to work
// with any supported connection type. The sql.DB adapter also serves SQLite.
package adapters
