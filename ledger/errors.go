package ledger

import (
	"errors"
)

var (
	// ErrNotFound is returned by lookups when the row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOpenLoanExists is returned by InsertLoan when the item already has an open loan.
	ErrOpenLoanExists = errors.New("item already has an open loan")

	// ErrLoanAlreadyClosed is returned by CloseLoan when the loan was closed before.
	ErrLoanAlreadyClosed = errors.New("loan already closed")

	// ErrTransientConflict marks failures caused by concurrent transactions, e.g. a deadlock or a
	// busy database. Running the whole transaction again may succeed.
	ErrTransientConflict = errors.New("transient conflict with a concurrent transaction")

	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTablePrefix      = errors.New("empty table prefix supplied")
	ErrQueryFailed           = errors.New("query failed")
	ErrScanningDBRowFailed   = errors.New("scanning db row failed")
	ErrBuildingQueryFailed   = errors.New("building query failed")
	ErrBeginTxFailed         = errors.New("begin transaction failed")
	ErrCommitFailed          = errors.New("commit failed")
)
