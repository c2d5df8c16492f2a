// Package storewrapper creates SQL ledger stores for tests.
//
// The engine is selected with ADAPTER_TYPE: "sqlite" (default) uses a fresh SQLite
// file per test, "pgx.pool", "sql.db" and "sqlx.db" connect to the PostgreSQL
// database given by LENDING_TEST_POSTGRES_DSN and skip the test when it is unreachable.
package storewrapper
