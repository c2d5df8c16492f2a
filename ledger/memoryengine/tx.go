package memoryengine

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

type tx struct {
	state *state
}

var _ ledger.Tx = (*tx)(nil)

func (t *tx) GetItem(_ context.Context, id uuid.UUID) (core.Item, error) {
	item, ok := t.state.items[id]
	if !ok {
		return core.Item{}, ledger.ErrNotFound
	}

	return item, nil
}

func (t *tx) ListItems(_ context.Context) ([]core.Item, error) {
	items := slices.Collect(maps.Values(t.state.items))
	slices.SortFunc(items, func(a, b core.Item) int { return cmp.Compare(a.Name, b.Name) })

	return items, nil
}

func (t *tx) SaveItem(_ context.Context, item core.Item) error {
	if existing, ok := t.state.items[item.ID]; ok {
		item.Available = existing.Available
	}

	t.state.items[item.ID] = item

	return nil
}

func (t *tx) GetMember(_ context.Context, id uuid.UUID) (core.Member, error) {
	member, ok := t.state.members[id]
	if !ok {
		return core.Member{}, ledger.ErrNotFound
	}

	return member, nil
}

func (t *tx) ListMembers(_ context.Context) ([]core.Member, error) {
	members := slices.Collect(maps.Values(t.state.members))
	slices.SortFunc(members, func(a, b core.Member) int { return cmp.Compare(a.Name, b.Name) })

	return members, nil
}

func (t *tx) SaveMember(_ context.Context, member core.Member) error {
	t.state.members[member.ID] = member

	return nil
}

func (t *tx) GetLoan(_ context.Context, id uuid.UUID) (core.Loan, error) {
	loan, ok := t.state.loans[id]
	if !ok {
		return core.Loan{}, ledger.ErrNotFound
	}

	return loan, nil
}

func (t *tx) OpenLoanOfItem(_ context.Context, itemID uuid.UUID) (core.Loan, error) {
	for _, loan := range t.state.loans {
		if loan.ItemID == itemID && loan.IsOpen() {
			return loan, nil
		}
	}

	return core.Loan{}, ledger.ErrNotFound
}

func (t *tx) OpenLoansOfMember(_ context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return t.filterLoans(func(l core.Loan) bool { return l.MemberID == memberID && l.IsOpen() }, byBorrowedAtDesc), nil
}

func (t *tx) LoansOfMember(_ context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return t.filterLoans(func(l core.Loan) bool { return l.MemberID == memberID }, byBorrowedAtDesc), nil
}

func (t *tx) OverdueLoans(_ context.Context, now time.Time) ([]core.Loan, error) {
	return t.filterLoans(func(l core.Loan) bool { return l.IsOverdueAt(now) }, byDueAtAsc), nil
}

func (t *tx) ActiveRule(_ context.Context) (core.BorrowingRule, error) {
	for _, rule := range t.state.rules {
		if rule.Active {
			return rule, nil
		}
	}

	return core.BorrowingRule{}, ledger.ErrNotFound
}

func (t *tx) ListRules(_ context.Context) ([]core.BorrowingRule, error) {
	rules := slices.Collect(maps.Values(t.state.rules))
	slices.SortFunc(rules, func(a, b core.BorrowingRule) int { return cmp.Compare(a.Name, b.Name) })

	return rules, nil
}

func (t *tx) SaveRule(_ context.Context, rule core.BorrowingRule) error {
	if rule.Active {
		for id, other := range t.state.rules {
			if id != rule.ID && other.Active {
				other.Active = false
				t.state.rules[id] = other
			}
		}
	}

	t.state.rules[rule.ID] = rule

	return nil
}

func (t *tx) LockMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return t.GetMember(ctx, id)
}

func (t *tx) LockItem(ctx context.Context, id uuid.UUID) (core.Item, error) {
	return t.GetItem(ctx, id)
}

func (t *tx) LockLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return t.GetLoan(ctx, id)
}

func (t *tx) InsertLoan(ctx context.Context, loan core.Loan) error {
	if _, err := t.OpenLoanOfItem(ctx, loan.ItemID); err == nil {
		return ledger.ErrOpenLoanExists
	}

	t.state.loans[loan.ID] = loan

	return nil
}

func (t *tx) CloseLoan(_ context.Context, id uuid.UUID, returnedAt time.Time) error {
	loan, ok := t.state.loans[id]
	if !ok {
		return ledger.ErrNotFound
	}

	if !loan.IsOpen() {
		return ledger.ErrLoanAlreadyClosed
	}

	t.state.loans[id] = loan.Closed(returnedAt)

	return nil
}

func (t *tx) SetItemAvailability(_ context.Context, id uuid.UUID, available bool) error {
	item, ok := t.state.items[id]
	if !ok {
		return ledger.ErrNotFound
	}

	item.Available = available
	t.state.items[id] = item

	return nil
}

func (t *tx) filterLoans(keep func(core.Loan) bool, order func(a, b core.Loan) int) []core.Loan {
	loans := make([]core.Loan, 0)
	for _, loan := range t.state.loans {
		if keep(loan) {
			loans = append(loans, loan)
		}
	}

	slices.SortFunc(loans, order)

	return loans
}

func byBorrowedAtDesc(a, b core.Loan) int {
	return b.BorrowedAt.Compare(a.BorrowedAt)
}

func byDueAtAsc(a, b core.Loan) int {
	return a.DueAt.Compare(b.DueAt)
}
