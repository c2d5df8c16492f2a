package eligibility_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/eligibility"
)

// predicates are the seven independent ways a borrow can fail, in check order.
type predicates struct {
	itemMissing       bool
	memberBlocked     bool
	memberInactive    bool
	memberOverdue     bool
	itemNotBorrowable bool
	itemNotAvailable  bool
	memberAtLimit     bool
}

func predicatesFrom(mask int) predicates {
	return predicates{
		itemMissing:       mask&(1<<0) != 0,
		memberBlocked:     mask&(1<<1) != 0,
		memberOverdue:     mask&(1<<2) != 0,
		itemNotBorrowable: mask&(1<<3) != 0,
		itemNotAvailable:  mask&(1<<4) != 0,
		memberAtLimit:     mask&(1<<5) != 0,
		memberInactive:    mask&(1<<6) != 0,
	}
}

func (p predicates) expectedReason() core.Reason {
	switch {
	case p.itemMissing:
		return core.ReasonItemNotFound
	case p.memberBlocked:
		return core.ReasonMemberBlocked
	case p.memberInactive:
		return core.ReasonMemberNotFound
	case p.memberOverdue:
		return core.ReasonMemberOverdue
	case p.itemNotBorrowable:
		return core.ReasonItemNotBorrowable
	case p.itemNotAvailable:
		return core.ReasonItemNotAvailable
	case p.memberAtLimit:
		return core.ReasonLoanLimitExceeded
	default:
		return core.ReasonNone
	}
}

func (p predicates) snapshot(t *testing.T, now time.Time) eligibility.Snapshot {
	t.Helper()

	member := givenMember(t)
	member.Blocked = p.memberBlocked
	member.Active = !p.memberInactive

	var item *core.Item
	if !p.itemMissing {
		kind := core.ItemKindBook
		if p.itemNotBorrowable {
			kind = core.ItemKindBoardGame
		}
		i := core.NewItem(uuid.New(), "Item", kind)
		i.Available = !p.itemNotAvailable
		item = &i
	}

	var loans []core.Loan
	if p.memberOverdue {
		// one loan, overdue by a day, keeps the count below the limit
		loans = append(loans, givenLoanBorrowedAt(t, member.ID, now.Add(-8*24*time.Hour)))
	}
	if p.memberAtLimit {
		for len(loans) < core.DefaultMaxConcurrentLoans {
			loans = append(loans, givenLoanBorrowedAt(t, member.ID, now.Add(-time.Hour)))
		}
	}

	return eligibility.Snapshot{
		Member:   &member,
		Item:     item,
		Standing: core.DeriveStanding(loans),
	}
}

func Test_Evaluate_TruthTable_FirstFailingCheckWins(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	for mask := 0; mask < 1<<7; mask++ {
		p := predicatesFrom(mask)

		t.Run(fmt.Sprintf("%07b", mask), func(t *testing.T) {
			// arrange
			snapshot := p.snapshot(t, now)

			// act
			decision := eligibility.Evaluate(snapshot, now)

			// assert
			assert.Equal(t, p.expectedReason(), decision.Reason, "%+v", p)
			assert.Equal(t, p.expectedReason() == core.ReasonNone, decision.Eligible)
		})
	}
}

func Test_Evaluate_BlockedMemberAlwaysRefusedAsBlocked(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	for mask := 0; mask < 1<<7; mask++ {
		p := predicatesFrom(mask)
		if p.itemMissing {
			continue // ItemNotFound is checked before anything about the member
		}
		p.memberBlocked = true

		decision := eligibility.Evaluate(p.snapshot(t, now), now)

		assert.Equal(t, core.ReasonMemberBlocked, decision.Reason, "%+v", p)
	}
}

func Test_Evaluate_NonBorrowableItemNeverEligible(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	for mask := 0; mask < 1<<7; mask++ {
		p := predicatesFrom(mask)
		p.itemNotBorrowable = true

		decision := eligibility.Evaluate(p.snapshot(t, now), now)

		assert.False(t, decision.Eligible, "%+v", p)
		assert.Error(t, decision.HasError())
	}
}

func Test_Evaluate_LoanLimitBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	member := givenMember(t)
	item := givenAvailableBook(t)

	testCases := []struct {
		name      string
		rule      *core.BorrowingRule
		openLoans int
		expected  core.Reason
	}{
		{name: "default limit minus one", openLoans: 2, expected: core.ReasonNone},
		{name: "default limit reached", openLoans: 3, expected: core.ReasonLoanLimitExceeded},
		{name: "active rule limit minus one", rule: givenRule(t, 5, true), openLoans: 4, expected: core.ReasonNone},
		{name: "active rule limit reached", rule: givenRule(t, 5, true), openLoans: 5, expected: core.ReasonLoanLimitExceeded},
		{name: "stricter active rule", rule: givenRule(t, 1, true), openLoans: 1, expected: core.ReasonLoanLimitExceeded},
		{name: "inactive rule falls back to default", rule: givenRule(t, 10, false), openLoans: 3, expected: core.ReasonLoanLimitExceeded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			loans := make([]core.Loan, 0, tc.openLoans)
			for i := 0; i < tc.openLoans; i++ {
				loans = append(loans, givenLoanBorrowedAt(t, member.ID, now.Add(-time.Hour)))
			}

			snapshot := eligibility.Snapshot{
				Member:   &member,
				Item:     &item,
				Standing: core.DeriveStanding(loans),
				Rule:     tc.rule,
			}

			// act
			decision := eligibility.Evaluate(snapshot, now)

			// assert
			assert.Equal(t, tc.expected, decision.Reason)
		})
	}
}

func Test_Evaluate_MissingOrInactiveMember(t *testing.T) {
	now := time.Now()
	item := givenAvailableBook(t)
	inactive := givenMember(t)
	inactive.Active = false

	assert.Equal(t, core.ReasonMemberNotFound, eligibility.Evaluate(eligibility.Snapshot{Item: &item}, now).Reason)
	assert.Equal(t, core.ReasonMemberNotFound, eligibility.Evaluate(eligibility.Snapshot{Item: &item, Member: &inactive}, now).Reason)

	inactive.Blocked = true
	assert.Equal(t, core.ReasonMemberBlocked, eligibility.Evaluate(eligibility.Snapshot{Item: &item, Member: &inactive}, now).Reason)
}

func Test_Evaluate_ScenarioA_CleanMemberBorrowsAvailableItem(t *testing.T) {
	// arrange
	now := time.Now()
	member := givenMember(t)
	item := givenAvailableBook(t)

	// act
	decision := eligibility.Evaluate(eligibility.Snapshot{Member: &member, Item: &item}, now)

	// assert
	assert.True(t, decision.Eligible)
	assert.Equal(t, core.ReasonNone, decision.Reason)
	assert.NoError(t, decision.HasError())
}

func Test_Evaluate_ScenarioC_OverdueByOneDayWithinLimit(t *testing.T) {
	// arrange
	now := time.Unix(1_700_000_000, 0).UTC()
	member := givenMember(t)
	item := givenAvailableBook(t)
	overdue := givenLoanBorrowedAt(t, member.ID, now.Add(-core.DefaultBorrowPeriod-24*time.Hour))

	// act
	decision := eligibility.Evaluate(eligibility.Snapshot{
		Member:   &member,
		Item:     &item,
		Standing: core.DeriveStanding([]core.Loan{overdue}),
	}, now)

	// assert
	assert.Equal(t, core.ReasonMemberOverdue, decision.Reason)
	assert.ErrorIs(t, decision.HasError(), core.ErrMemberOverdue)
}

func Test_Evaluate_ScenarioD_BoardGame(t *testing.T) {
	member := givenMember(t)
	game := core.NewItem(uuid.New(), "Catan", core.ItemKindBoardGame)

	decision := eligibility.Evaluate(eligibility.Snapshot{Member: &member, Item: &game}, time.Now())

	assert.Equal(t, core.ReasonItemNotBorrowable, decision.Reason)
}

func Test_Limit(t *testing.T) {
	assert.Equal(t, 3, eligibility.Limit(nil, 0))
	assert.Equal(t, 4, eligibility.Limit(nil, 4))
	assert.Equal(t, 2, eligibility.Limit(givenRule(t, 2, true), 4))
	assert.Equal(t, 4, eligibility.Limit(givenRule(t, 2, false), 4))
}

// Test helper functions with t.Helper() for better error reporting

func givenMember(t *testing.T) core.Member {
	t.Helper()
	return core.NewMember(uuid.New(), "Test Member", "member@example.org")
}

func givenAvailableBook(t *testing.T) core.Item {
	t.Helper()
	return core.NewItem(uuid.New(), "Learning Domain-Driven Design", core.ItemKindBook)
}

func givenLoanBorrowedAt(t *testing.T, memberID uuid.UUID, at time.Time) core.Loan {
	t.Helper()
	return core.OpenLoan(uuid.New(), memberID, uuid.New(), at, core.DefaultBorrowPeriod)
}

func givenRule(t *testing.T, limit int, active bool) *core.BorrowingRule {
	t.Helper()
	rule, err := core.BuildBorrowingRule(uuid.New(), "test rule", limit, active)
	assert.NoError(t, err)
	return &rule
}
