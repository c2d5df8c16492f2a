package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
)

// Catalog gives access to the items of the library.
type Catalog interface {
	GetItem(ctx context.Context, id uuid.UUID) (core.Item, error)
	ListItems(ctx context.Context) ([]core.Item, error)

	// SaveItem inserts the item, or updates name, kind and borrowable of an existing one.
	// Availability of an existing item is only changed by Tx.SetItemAvailability.
	SaveItem(ctx context.Context, item core.Item) error
}

// Members gives access to the member registry.
type Members interface {
	GetMember(ctx context.Context, id uuid.UUID) (core.Member, error)
	ListMembers(ctx context.Context) ([]core.Member, error)
	SaveMember(ctx context.Context, member core.Member) error
}

// Loans gives access to the loan ledger.
type Loans interface {
	GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error)

	// OpenLoanOfItem returns the single open loan of the item, ErrNotFound if there is none.
	OpenLoanOfItem(ctx context.Context, itemID uuid.UUID) (core.Loan, error)

	OpenLoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error)

	// LoansOfMember returns open and closed loans, most recently borrowed first.
	LoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error)

	// OverdueLoans returns every open loan due before now, earliest due first.
	OverdueLoans(ctx context.Context, now time.Time) ([]core.Loan, error)
}

// Rules gives access to the borrowing rules.
type Rules interface {
	// ActiveRule returns the active rule, ErrNotFound if none is active.
	ActiveRule(ctx context.Context) (core.BorrowingRule, error)
	ListRules(ctx context.Context) ([]core.BorrowingRule, error)

	// SaveRule upserts the rule. Saving an active rule deactivates all others.
	SaveRule(ctx context.Context, rule core.BorrowingRule) error
}

// Repositories bundles the read and administrative write access to the ledger.
type Repositories interface {
	Catalog
	Members
	Loans
	Rules
}

// Tx is the view of the ledger inside a transaction.
type Tx interface {
	Repositories

	// LockMember reads the member and holds a write lock on it until the transaction ends.
	LockMember(ctx context.Context, id uuid.UUID) (core.Member, error)

	// LockItem reads the item and holds a write lock on it until the transaction ends.
	LockItem(ctx context.Context, id uuid.UUID) (core.Item, error)

	// LockLoan reads the loan and holds a write lock on it until the transaction ends.
	LockLoan(ctx context.Context, id uuid.UUID) (core.Loan, error)

	// InsertLoan persists a new open loan. It fails with ErrOpenLoanExists if the item
	// already has one.
	InsertLoan(ctx context.Context, loan core.Loan) error

	// CloseLoan sets the return time of an open loan. It fails with ErrLoanAlreadyClosed
	// if the loan was closed before.
	CloseLoan(ctx context.Context, id uuid.UUID, returnedAt time.Time) error

	SetItemAvailability(ctx context.Context, id uuid.UUID, available bool) error
}

// TxFunc is the unit of work executed by Store.InTx.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a ledger engine.
type Store interface {
	Repositories

	// InTx runs fn in a transaction. It commits when fn returns nil and rolls back otherwise.
	// The error of fn is returned unchanged.
	InTx(ctx context.Context, fn TxFunc) error
}
