package adapters

import "context"

// Querier executes interpolated SQL. Both connections and transactions implement it.
type Querier interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBAdapter defines the interface for database operations needed by the ledger.
type DBAdapter interface {
	Querier

	// Reader returns the replica when eventual is true and one is configured, the primary otherwise.
	Reader(eventual bool) Querier

	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx is an open transaction on the primary database.
type DBTx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
