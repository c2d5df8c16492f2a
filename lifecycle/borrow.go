package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/eligibility"
	"github.com/mediatheque-go/lending/ledger"
)

// BorrowItem opens a loan of the item for the member, due one borrow period after now.
//
// The member and the item are locked for the whole transaction, so concurrent borrows of
// one item yield exactly one loan and concurrent borrows of one member respect the limit.
// Refusals are returned as *core.BorrowError. Losing the race for an item to a concurrent
// transaction is reported as core.ReasonItemNotAvailable.
func (s *Service) BorrowItem(ctx context.Context, memberID, itemID uuid.UUID, now time.Time) (core.Loan, error) {
	observer, ctx := s.observe(ctx, operationBorrowItem, logAttrMemberID, memberID.String(), logAttrItemID, itemID.String())
	ctx = ledger.WithStrongConsistency(ctx)

	var loan core.Loan

	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		snapshot, err := s.lockedSnapshot(ctx, tx, memberID, itemID)
		if err != nil {
			return err
		}

		if refusal := eligibility.Evaluate(snapshot, now).HasError(); refusal != nil {
			return refusal
		}

		loanID, err := s.newID()
		if err != nil {
			return err
		}

		opened := core.OpenLoan(loanID, memberID, itemID, now, s.borrowPeriod)
		if err = tx.InsertLoan(ctx, opened); err != nil {
			return err
		}

		if err = tx.SetItemAvailability(ctx, itemID, false); err != nil {
			return err
		}

		s.invalidateStanding(memberID)
		loan = opened

		return nil
	})

	s.invalidateStanding(memberID)

	if errors.Is(err, ledger.ErrOpenLoanExists) {
		err = &core.BorrowError{Reason: core.ReasonItemNotAvailable}
	}

	if err = observer.finish(err); err != nil {
		return core.Loan{}, err
	}

	return loan, nil
}

// lockedSnapshot locks member and item and collects what eligibility is decided on.
// Missing rows stay nil in the snapshot so that Evaluate reports them in its own order.
func (s *Service) lockedSnapshot(ctx context.Context, tx ledger.Tx, memberID, itemID uuid.UUID) (eligibility.Snapshot, error) {
	snapshot := eligibility.Snapshot{DefaultLimit: s.defaultLimit}

	member, err := tx.LockMember(ctx, memberID)
	switch {
	case err == nil:
		snapshot.Member = &member
	case !errors.Is(err, ledger.ErrNotFound):
		return eligibility.Snapshot{}, err
	}

	item, err := tx.LockItem(ctx, itemID)
	switch {
	case err == nil:
		snapshot.Item = &item
	case !errors.Is(err, ledger.ErrNotFound):
		return eligibility.Snapshot{}, err
	}

	if snapshot.Member == nil || snapshot.Item == nil {
		return snapshot, nil
	}

	openLoans, err := tx.OpenLoansOfMember(ctx, memberID)
	if err != nil {
		return eligibility.Snapshot{}, err
	}

	snapshot.Standing = core.DeriveStanding(openLoans)

	snapshot.Rule, err = activeRule(ctx, tx)
	if err != nil {
		return eligibility.Snapshot{}, err
	}

	return snapshot, nil
}

// activeRule returns the active borrowing rule, nil when none is active.
func activeRule(ctx context.Context, rules ledger.Rules) (*core.BorrowingRule, error) {
	rule, err := rules.ActiveRule(ctx)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &rule, nil
}
