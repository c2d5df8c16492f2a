package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

// ReturnItem closes the loan at now and makes its item available again.
// A second return of the same loan fails with core.ReasonAlreadyReturned.
func (s *Service) ReturnItem(ctx context.Context, loanID uuid.UUID, now time.Time) (core.Loan, error) {
	observer, ctx := s.observe(ctx, operationReturnItem, logAttrLoanID, loanID.String())
	ctx = ledger.WithStrongConsistency(ctx)

	var returned core.Loan

	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		returned, err = s.closeLoan(ctx, tx, loanID, now)

		return err
	})

	s.invalidateStanding(returned.MemberID)

	if err = observer.finish(err); err != nil {
		return core.Loan{}, err
	}

	return returned, nil
}

// ReturnItemOfMember closes the open loan through which the member holds the item.
// It fails with core.ReasonLoanNotFound when the member does not hold the item.
func (s *Service) ReturnItemOfMember(ctx context.Context, memberID, itemID uuid.UUID, now time.Time) (core.Loan, error) {
	observer, ctx := s.observe(ctx, operationReturnItemOfMember, logAttrMemberID, memberID.String(), logAttrItemID, itemID.String())
	ctx = ledger.WithStrongConsistency(ctx)

	var returned core.Loan

	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		open, err := tx.OpenLoanOfItem(ctx, itemID)
		if errors.Is(err, ledger.ErrNotFound) || (err == nil && open.MemberID != memberID) {
			return &core.ReturnError{Reason: core.ReasonLoanNotFound}
		}

		if err != nil {
			return err
		}

		returned, err = s.closeLoan(ctx, tx, open.ID, now)

		return err
	})

	s.invalidateStanding(memberID)

	if err = observer.finish(err); err != nil {
		return core.Loan{}, err
	}

	return returned, nil
}

// closeLoan locks the loan and its item, closes the loan and frees the item.
func (s *Service) closeLoan(ctx context.Context, tx ledger.Tx, loanID uuid.UUID, now time.Time) (core.Loan, error) {
	loan, err := tx.LockLoan(ctx, loanID)
	if errors.Is(err, ledger.ErrNotFound) {
		return core.Loan{}, &core.ReturnError{Reason: core.ReasonLoanNotFound}
	}

	if err != nil {
		return core.Loan{}, err
	}

	if !loan.IsOpen() {
		return core.Loan{}, &core.ReturnError{Reason: core.ReasonAlreadyReturned}
	}

	if _, err = tx.LockItem(ctx, loan.ItemID); err != nil {
		return core.Loan{}, err
	}

	err = tx.CloseLoan(ctx, loan.ID, now)
	if errors.Is(err, ledger.ErrLoanAlreadyClosed) {
		return core.Loan{}, &core.ReturnError{Reason: core.ReasonAlreadyReturned}
	}

	if err != nil {
		return core.Loan{}, err
	}

	if err = tx.SetItemAvailability(ctx, loan.ItemID, true); err != nil {
		return core.Loan{}, err
	}

	s.invalidateStanding(loan.MemberID)

	return loan.Closed(now), nil
}
