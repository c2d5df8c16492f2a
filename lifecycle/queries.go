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

// LoanView is a loan together with its state at the time it was read.
type LoanView struct {
	Loan  core.Loan
	State core.LoanState
}

// MemberStanding summarizes what a member currently holds.
type MemberStanding struct {
	MemberID      uuid.UUID
	OpenLoanCount int
	EarliestDueAt core.Timestamp
	Overdue       bool
	Limit         int
}

// Remaining returns how many more loans the member may open under the current limit.
func (m MemberStanding) Remaining() int {
	return max(m.Limit-m.OpenLoanCount, 0)
}

// CheckEligibility previews whether the member may borrow the item at now without changing anything.
// The standing comes from the cache and may be stale; BorrowItem decides again under lock.
// The returned error reports infrastructure failures only, refusals are part of the Decision.
func (s *Service) CheckEligibility(ctx context.Context, memberID, itemID uuid.UUID, now time.Time) (eligibility.Decision, error) {
	observer, ctx := s.observe(ctx, operationCheckEligibility, logAttrMemberID, memberID.String(), logAttrItemID, itemID.String())
	ctx = ledger.WithEventualConsistency(ctx)

	decision, err := s.checkEligibility(ctx, memberID, itemID, now)
	if err = observer.finish(err); err != nil {
		return eligibility.Decision{}, err
	}

	return decision, nil
}

func (s *Service) checkEligibility(ctx context.Context, memberID, itemID uuid.UUID, now time.Time) (eligibility.Decision, error) {
	snapshot := eligibility.Snapshot{DefaultLimit: s.defaultLimit}

	item, err := s.store.GetItem(ctx, itemID)
	switch {
	case err == nil:
		snapshot.Item = &item
	case !errors.Is(err, ledger.ErrNotFound):
		return eligibility.Decision{}, err
	}

	member, err := s.store.GetMember(ctx, memberID)
	switch {
	case err == nil:
		snapshot.Member = &member
	case !errors.Is(err, ledger.ErrNotFound):
		return eligibility.Decision{}, err
	}

	if snapshot.Member != nil && snapshot.Item != nil {
		if snapshot.Standing, err = s.standingCache.Get(ctx, memberID); err != nil {
			return eligibility.Decision{}, err
		}

		if snapshot.Rule, err = activeRule(ctx, s.store); err != nil {
			return eligibility.Decision{}, err
		}
	}

	return eligibility.Evaluate(snapshot, now), nil
}

// MemberStanding returns the cached standing of the member evaluated at now.
// It fails with core.ErrMemberNotFound for unknown members.
func (s *Service) MemberStanding(ctx context.Context, memberID uuid.UUID, now time.Time) (MemberStanding, error) {
	observer, ctx := s.observe(ctx, operationMemberStanding, logAttrMemberID, memberID.String())

	standing, err := s.memberStanding(ctx, memberID, now)
	if err = observer.finish(err); err != nil {
		return MemberStanding{}, err
	}

	return standing, nil
}

func (s *Service) memberStanding(ctx context.Context, memberID uuid.UUID, now time.Time) (MemberStanding, error) {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return MemberStanding{}, &core.BorrowError{Reason: core.ReasonMemberNotFound}
		}

		return MemberStanding{}, err
	}

	standing, err := s.standingCache.Get(ctx, memberID)
	if err != nil {
		return MemberStanding{}, err
	}

	rule, err := activeRule(ctx, s.store)
	if err != nil {
		return MemberStanding{}, err
	}

	return MemberStanding{
		MemberID:      memberID,
		OpenLoanCount: standing.OpenLoanCount,
		EarliestDueAt: standing.EarliestDueAt,
		Overdue:       standing.HasOverdueLoanAt(now),
		Limit:         eligibility.Limit(rule, s.defaultLimit),
	}, nil
}

// SetItemAvailability marks an item as available or unavailable for administrative reasons,
// e.g. repair. It is refused with core.ReasonItemHasOpenLoan while the item is lent out.
func (s *Service) SetItemAvailability(ctx context.Context, itemID uuid.UUID, available bool) (core.Item, error) {
	observer, ctx := s.observe(ctx, operationSetItemAvailability, logAttrItemID, itemID.String())
	ctx = ledger.WithStrongConsistency(ctx)

	var updated core.Item

	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		item, err := tx.LockItem(ctx, itemID)
		if errors.Is(err, ledger.ErrNotFound) {
			return &core.AvailabilityError{Reason: core.ReasonItemNotFound}
		}

		if err != nil {
			return err
		}

		_, err = tx.OpenLoanOfItem(ctx, itemID)
		if err == nil {
			return &core.AvailabilityError{Reason: core.ReasonItemHasOpenLoan}
		}

		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		if err = tx.SetItemAvailability(ctx, itemID, available); err != nil {
			return err
		}

		item.Available = available
		updated = item

		return nil
	})

	if err = observer.finish(err); err != nil {
		return core.Item{}, err
	}

	return updated, nil
}

// LoansOfMember lists all loans of the member, most recently borrowed first.
func (s *Service) LoansOfMember(ctx context.Context, memberID uuid.UUID, now time.Time) ([]LoanView, error) {
	observer, ctx := s.observe(ctx, operationLoansOfMember, logAttrMemberID, memberID.String())

	loans, err := s.store.LoansOfMember(ctx, memberID)
	if err = observer.finish(err); err != nil {
		return nil, err
	}

	return viewsAt(loans, now), nil
}

// OverdueLoans lists every loan that is overdue at now, earliest due first.
func (s *Service) OverdueLoans(ctx context.Context, now time.Time) ([]LoanView, error) {
	observer, ctx := s.observe(ctx, operationOverdueLoans)

	loans, err := s.store.OverdueLoans(ctx, now)
	if err = observer.finish(err); err != nil {
		return nil, err
	}

	return viewsAt(loans, now), nil
}

func viewsAt(loans []core.Loan, now time.Time) []LoanView {
	views := make([]LoanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, LoanView{Loan: loan, State: loan.StateAt(now)})
	}

	return views
}
