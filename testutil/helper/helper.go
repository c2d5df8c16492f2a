package helper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

// FakeClock is the fixed "now" used by tests that do not care about wall-clock time.
var FakeClock = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

func FixtureItem(t testing.TB, kind core.ItemKind) core.Item {
	return core.NewItem(GivenUniqueID(t), "Fixture "+string(kind), kind)
}

func FixtureMember(t testing.TB) core.Member {
	id := GivenUniqueID(t)

	return core.NewMember(id, "Member "+id.String()[:8], id.String()[:8]+"@example.org")
}

func FixtureRule(t testing.TB, maxConcurrentLoans int, active bool) core.BorrowingRule {
	rule, err := core.BuildBorrowingRule(GivenUniqueID(t), fmt.Sprintf("max %d loans", maxConcurrentLoans), maxConcurrentLoans, active)
	assert.NoError(t, err, "error in arranging test data")

	return rule
}

func GivenItemWasAdded(t testing.TB, ctx context.Context, store ledger.Store, kind core.ItemKind) core.Item {
	item := FixtureItem(t, kind)
	assert.NoError(t, store.SaveItem(ctx, item), "error in arranging test data")

	return item
}

func GivenBlockedMemberWasRegistered(t testing.TB, ctx context.Context, store ledger.Store) core.Member {
	member := FixtureMember(t)
	member.Blocked = true
	assert.NoError(t, store.SaveMember(ctx, member), "error in arranging test data")

	return member
}

func GivenMemberWasRegistered(t testing.TB, ctx context.Context, store ledger.Store) core.Member {
	member := FixtureMember(t)
	assert.NoError(t, store.SaveMember(ctx, member), "error in arranging test data")

	return member
}

func GivenRuleWasSaved(t testing.TB, ctx context.Context, store ledger.Store, maxConcurrentLoans int) core.BorrowingRule {
	rule := FixtureRule(t, maxConcurrentLoans, true)
	assert.NoError(t, store.SaveRule(ctx, rule), "error in arranging test data")

	return rule
}

// GivenLoanWasOpened writes an open loan directly into the ledger, bypassing the eligibility check.
func GivenLoanWasOpened(
	t testing.TB,
	ctx context.Context,
	store ledger.Store,
	memberID uuid.UUID,
	itemID uuid.UUID,
	borrowedAt time.Time,
) core.Loan {

	loan := core.OpenLoan(GivenUniqueID(t), memberID, itemID, borrowedAt, core.DefaultBorrowPeriod)
	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertLoan(ctx, loan)
	})
	assert.NoError(t, err, "error in arranging test data")

	return loan
}

// GivenOverdueLoanWasOpened opens a loan that is overdue by the given duration at FakeClock.
func GivenOverdueLoanWasOpened(t testing.TB, ctx context.Context, store ledger.Store, memberID uuid.UUID, overdueBy time.Duration) core.Loan {
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

	return GivenLoanWasOpened(t, ctx, store, memberID, item.ID, FakeClock.Add(-core.DefaultBorrowPeriod-overdueBy))
}
