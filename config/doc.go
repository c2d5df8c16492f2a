// Package config provides the runtime configuration of the lending engine and
// factory functions for its database connections and observability providers.
//
// Configuration is read from environment variables:
//
//	LENDING_DB_DRIVER             pgx.pool | sql.db | sqlx.db | sqlite (default sqlite)
//	LENDING_POSTGRES_DSN          primary PostgreSQL DSN
//	LENDING_POSTGRES_REPLICA_DSN  optional read replica, pgx.pool only
//	LENDING_SQLITE_PATH           SQLite database file (default lending.db)
//	LENDING_BORROW_PERIOD         loan duration (default 168h)
//	LENDING_DEFAULT_MAX_LOANS     loan limit without an active rule (default 3)
//	LENDING_STANDING_CACHE_TTL    member standing cache TTL, 0 disables the cache (default 5m)
//	LENDING_LOG_LEVEL             debug | info | warn | error (default info)
//	LENDING_OTLP_ENDPOINT         OTLP/HTTP trace endpoint, e.g. localhost:4318
//	LENDING_POOL_*                connection pool sizing
package config
