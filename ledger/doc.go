// Package ledger defines the storage abstractions of the lending engine:
// the catalog of items, the member registry, the loan ledger and the borrowing
// rules, together with the transactional boundary used by the lifecycle service.
//
// The ledger is the single source of truth for loans. Engines implementing
// Store must guarantee that
//   - InTx runs its function with all-or-nothing semantics,
//   - LockMember, LockItem and LockLoan serialize concurrent transactions on the
//     same row until the transaction ends,
//   - at most one open loan exists per item; a violating InsertLoan fails with
//     ErrOpenLoanExists.
//
// Engines:
//   - ledger/sqlengine: PostgreSQL (pgx.Pool, database/sql, sqlx) and SQLite
//   - ledger/memoryengine: in-process, for tests and the simulation command
//
// Common usage pattern:
//
//	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
//		member, err := tx.LockMember(ctx, memberID)
//		if err != nil {
//			return err
//		}
//		// ... read, decide, write
//		return tx.InsertLoan(ctx, loan)
//	})
package ledger
