package config

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const postgresDriverName = "postgres"

var ErrDatabaseUnreachable = errors.New("database unreachable")

// PostgresPGXPoolConfig creates a pgxpool.Config for dsn sized by pool.
func PostgresPGXPoolConfig(dsn string, pool PoolConfig) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	dbConfig.MaxConns = pool.MaxConns
	dbConfig.MinConns = pool.MinConns
	dbConfig.MaxConnLifetime = pool.MaxConnLifetime
	dbConfig.MaxConnIdleTime = pool.MaxConnIdleTime
	dbConfig.HealthCheckPeriod = pool.HealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = pool.ConnectTimeout

	return dbConfig, nil
}

// PostgresPGXPool connects a pgx pool to the primary database.
func PostgresPGXPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	return connectPGXPool(ctx, cfg.PostgresDSN, cfg.Pool)
}

// PostgresPGXReplicaPool connects a pgx pool to the replica, nil if no replica is configured.
func PostgresPGXReplicaPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.PostgresReplicaDSN == "" {
		return nil, nil
	}

	return connectPGXPool(ctx, cfg.PostgresReplicaDSN, cfg.Pool)
}

func connectPGXPool(ctx context.Context, dsn string, pool PoolConfig) (*pgxpool.Pool, error) {
	dbConfig, err := PostgresPGXPoolConfig(dsn, pool)
	if err != nil {
		return nil, err
	}

	connPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, errors.Join(ErrDatabaseUnreachable, err)
	}

	if pingErr := connPool.Ping(ctx); pingErr != nil {
		connPool.Close()
		return nil, errors.Join(ErrDatabaseUnreachable, pingErr)
	}

	return connPool, nil
}

// PostgresSQLDB opens a configured *sql.DB on the primary database using lib/pq.
func PostgresSQLDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, cfg.PostgresDSN)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	configureSQLPool(db, cfg.Pool)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close() // the ping error is the one to report
		return nil, errors.Join(ErrDatabaseUnreachable, pingErr)
	}

	return db, nil
}

// PostgresSQLX opens a configured *sqlx.DB on the primary database using lib/pq.
func PostgresSQLX(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, cfg.PostgresDSN)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	configureSQLPool(db.DB, cfg.Pool)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close() // the ping error is the one to report
		return nil, errors.Join(ErrDatabaseUnreachable, pingErr)
	}

	return db, nil
}

func configureSQLPool(db *sql.DB, pool PoolConfig) {
	db.SetMaxOpenConns(int(pool.MaxConns))
	db.SetMaxIdleConns(int(pool.MinConns))
	db.SetConnMaxLifetime(pool.MaxConnLifetime)
	db.SetConnMaxIdleTime(pool.MaxConnIdleTime)
}
