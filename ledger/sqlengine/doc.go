// Package sqlengine provides the SQL implementation of ledger.Store.
//
// It supports PostgreSQL through three connection types (pgx.Pool, sql.DB, sqlx.DB) and
// SQLite through a sql.DB opened with the modernc.org/sqlite driver. Queries are built
// with goqu and executed as interpolated SQL.
//
// Concurrency:
//   - On PostgreSQL, LockMember, LockItem and LockLoan issue SELECT ... FOR UPDATE, so
//     concurrent borrow and return transactions on the same member or item queue up.
//   - On SQLite the store limits the pool to a single connection, which serializes
//     all transactions.
//   - In both dialects a partial unique index on loans(item_id) WHERE returned_at IS NULL
//     rejects a second open loan for an item. InsertLoan maps the violation to
//     ledger.ErrOpenLoanExists.
//
// Timestamps are stored as BIGINT unix microseconds, ids as TEXT.
//
// Example usage:
//
//	store, err := sqlengine.NewStoreFromPGXPool(pool, sqlengine.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
package sqlengine
