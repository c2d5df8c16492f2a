package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger/memoryengine"
	"github.com/mediatheque-go/lending/lifecycle"
	. "github.com/mediatheque-go/lending/testutil/helper" //nolint:revive
)

func Test_BorrowItem_ScenarioA_OpensLoanAndMarksItemUnavailable(t *testing.T) {
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := e.newStore(t)
			service := givenService(t, store)
			member := GivenMemberWasRegistered(t, ctx, store)
			item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

			// act
			loan, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)

			// assert
			require.NoError(t, err)
			assert.Equal(t, member.ID, loan.MemberID)
			assert.Equal(t, item.ID, loan.ItemID)
			assert.True(t, loan.IsOpen())
			assert.True(t, loan.BorrowedAt.Equal(FakeClock))
			assert.True(t, loan.DueAt.Equal(FakeClock.Add(7*24*time.Hour)))

			stored, err := store.GetLoan(ctx, loan.ID)
			require.NoError(t, err)
			assert.True(t, stored.IsOpen())
			assert.True(t, stored.DueAt.Equal(loan.DueAt))

			reloaded, err := store.GetItem(ctx, item.ID)
			require.NoError(t, err)
			assert.False(t, reloaded.Available)
		})
	}
}

func Test_BorrowItem_ScenarioB_RefusesLoanBeyondDefaultLimit(t *testing.T) {
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := e.newStore(t)
			service := givenService(t, store)
			member := GivenMemberWasRegistered(t, ctx, store)
			for range core.DefaultMaxConcurrentLoans {
				item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
				_, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)
				require.NoError(t, err, "error in arranging test data")
			}
			fourth := GivenItemWasAdded(t, ctx, store, core.ItemKindDVD)

			// act
			_, err := service.BorrowItem(ctx, member.ID, fourth.ID, FakeClock)

			// assert
			assert.ErrorIs(t, err, core.ErrLoanLimitExceeded)
			reason, ok := core.ReasonOf(err)
			assert.True(t, ok)
			assert.Equal(t, core.ReasonLoanLimitExceeded, reason)

			reloaded, err := store.GetItem(ctx, fourth.ID)
			require.NoError(t, err)
			assert.True(t, reloaded.Available, "a refused borrow must not change the item")
		})
	}
}

func Test_BorrowItem_ScenarioC_RefusesMemberWithOverdueLoan(t *testing.T) {
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := e.newStore(t)
			service := givenService(t, store)
			member := GivenMemberWasRegistered(t, ctx, store)
			GivenOverdueLoanWasOpened(t, ctx, store, member.ID, 24*time.Hour)
			item := GivenItemWasAdded(t, ctx, store, core.ItemKindCD)

			// act
			_, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)

			// assert
			assert.ErrorIs(t, err, core.ErrMemberOverdue)

			loans, err := store.OpenLoansOfMember(ctx, member.ID)
			require.NoError(t, err)
			assert.Len(t, loans, 1)
		})
	}
}

func Test_BorrowItem_ScenarioD_RefusesBoardGame(t *testing.T) {
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := e.newStore(t)
			service := givenService(t, store)
			member := GivenMemberWasRegistered(t, ctx, store)
			game := GivenItemWasAdded(t, ctx, store, core.ItemKindBoardGame)

			// act
			_, err := service.BorrowItem(ctx, member.ID, game.ID, FakeClock)

			// assert
			assert.ErrorIs(t, err, core.ErrItemNotBorrowable)
		})
	}
}

func Test_BorrowItem_RefusesInOrder(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	service := givenService(t, store)

	active := GivenMemberWasRegistered(t, ctx, store)
	blocked := GivenBlockedMemberWasRegistered(t, ctx, store)
	inactive := FixtureMember(t)
	inactive.Active = false
	require.NoError(t, store.SaveMember(ctx, inactive))

	book := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
	game := GivenItemWasAdded(t, ctx, store, core.ItemKindBoardGame)
	lent := GivenItemWasAdded(t, ctx, store, core.ItemKindDVD)
	_, err := service.BorrowItem(ctx, active.ID, lent.ID, FakeClock)
	require.NoError(t, err, "error in arranging test data")

	testCases := []struct {
		name     string
		memberID uuid.UUID
		itemID   uuid.UUID
		expected core.Reason
	}{
		{name: "unknown item wins over unknown member", memberID: GivenUniqueID(t), itemID: GivenUniqueID(t), expected: core.ReasonItemNotFound},
		{name: "unknown member", memberID: GivenUniqueID(t), itemID: book.ID, expected: core.ReasonMemberNotFound},
		{name: "inactive member", memberID: inactive.ID, itemID: book.ID, expected: core.ReasonMemberNotFound},
		{name: "blocked wins over not borrowable", memberID: blocked.ID, itemID: game.ID, expected: core.ReasonMemberBlocked},
		{name: "blocked wins over not available", memberID: blocked.ID, itemID: lent.ID, expected: core.ReasonMemberBlocked},
		{name: "item lent out", memberID: active.ID, itemID: lent.ID, expected: core.ReasonItemNotAvailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := service.BorrowItem(ctx, tc.memberID, tc.itemID, FakeClock)

			// assert
			var borrowErr *core.BorrowError
			require.ErrorAs(t, err, &borrowErr)
			assert.Equal(t, tc.expected, borrowErr.Reason)
			assert.False(t, errors.Is(err, core.ErrInfrastructure))
		})
	}
}

func Test_BorrowItem_AppliesActiveRuleLimit(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memoryengine.NewStore()
	service := givenService(t, store)
	member := GivenMemberWasRegistered(t, ctx, store)
	GivenRuleWasSaved(t, ctx, store, 1)
	first := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
	second := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
	_, err := service.BorrowItem(ctx, member.ID, first.ID, FakeClock)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = service.BorrowItem(ctx, member.ID, second.ID, FakeClock)

	// assert
	assert.ErrorIs(t, err, core.ErrLoanLimitExceeded)
}

func Test_BorrowItem_AppliesConfiguredDefaultLimit(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memoryengine.NewStore()
	service := givenService(t, store, lifecycle.WithDefaultLoanLimit(5))
	member := GivenMemberWasRegistered(t, ctx, store)
	for range 4 {
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
		_, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)
		require.NoError(t, err, "error in arranging test data")
	}
	fifth := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
	sixth := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

	// act
	_, fifthErr := service.BorrowItem(ctx, member.ID, fifth.ID, FakeClock)
	_, sixthErr := service.BorrowItem(ctx, member.ID, sixth.ID, FakeClock)

	// assert
	assert.NoError(t, fifthErr)
	assert.ErrorIs(t, sixthErr, core.ErrLoanLimitExceeded)
}

func Test_BorrowItem_UsesConfiguredBorrowPeriod(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memoryengine.NewStore()
	service := givenService(t, store, lifecycle.WithBorrowPeriod(21*24*time.Hour))
	member := GivenMemberWasRegistered(t, ctx, store)
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

	// act
	loan, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)

	// assert
	require.NoError(t, err)
	assert.True(t, loan.DueAt.Equal(FakeClock.Add(21*24*time.Hour)))
}

func Test_BorrowItem_MapsLostRaceToItemNotAvailable(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memoryengine.NewStore()
	service := givenService(t, conflictingStore{Store: store})
	member := GivenMemberWasRegistered(t, ctx, store)
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

	// act
	_, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)

	// assert
	assert.ErrorIs(t, err, core.ErrItemNotAvailable)
	assert.False(t, errors.Is(err, core.ErrInfrastructure))

	reloaded, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Available, "the failed transaction must not change the item")
}

func Test_BorrowItem_WrapsInfrastructureFailure(t *testing.T) {
	// arrange
	ctx := context.Background()
	cause := errors.New("connection reset by peer")
	service := givenService(t, failingStore{Store: memoryengine.NewStore(), err: cause})

	// act
	_, err := service.BorrowItem(ctx, GivenUniqueID(t), GivenUniqueID(t), FakeClock)

	// assert
	assert.ErrorIs(t, err, core.ErrInfrastructure)
	assert.ErrorIs(t, err, cause)
	assert.False(t, core.IsBusinessError(err))

	var infraErr *core.InfrastructureError
	require.ErrorAs(t, err, &infraErr)
	assert.Equal(t, "borrow_item", infraErr.Op)
}

func Test_BorrowItem_DoesNotOpenLoanWhenIDGenerationFails(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memoryengine.NewStore()
	cause := errors.New("entropy exhausted")
	service := givenService(t, store, lifecycle.WithIDGenerator(func() (uuid.UUID, error) {
		return uuid.Nil, cause
	}))
	member := GivenMemberWasRegistered(t, ctx, store)
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

	// act
	_, err := service.BorrowItem(ctx, member.ID, item.ID, FakeClock)

	// assert
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, core.ErrInfrastructure)

	loans, err := store.LoansOfMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func Test_BorrowItem_ConcurrentBorrowsOfOneItem_OnlyOneSucceeds(t *testing.T) {
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := e.newStore(t)
			service := givenService(t, store)
			item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

			const borrowers = 12
			members := make([]core.Member, borrowers)
			for i := range members {
				members[i] = GivenMemberWasRegistered(t, ctx, store)
			}

			results := make([]error, borrowers)
			wg := sync.WaitGroup{}

			// act
			for i := range borrowers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, results[i] = service.BorrowItem(ctx, members[i].ID, item.ID, FakeClock)
				}(i)
			}
			wg.Wait()

			// assert
			succeeded := 0
			for _, err := range results {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, core.ErrItemNotAvailable)
			}
			assert.Equal(t, 1, succeeded)

			open, err := store.OpenLoanOfItem(ctx, item.ID)
			require.NoError(t, err)
			assert.NotEqual(t, core.Member{}, memberByID(members, open.MemberID), "the winner must be one of the borrowers")
		})
	}
}

func Test_BorrowItem_ConcurrentBorrowsOfOneMember_RespectLimit(t *testing.T) {
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			store := e.newStore(t)
			service := givenService(t, store)
			member := GivenMemberWasRegistered(t, ctx, store)

			const attempts = 8
			items := make([]core.Item, attempts)
			for i := range items {
				items[i] = GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
			}

			results := make([]error, attempts)
			wg := sync.WaitGroup{}

			// act
			for i := range attempts {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, results[i] = service.BorrowItem(ctx, member.ID, items[i].ID, FakeClock)
				}(i)
			}
			wg.Wait()

			// assert
			succeeded := 0
			for _, err := range results {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, core.ErrLoanLimitExceeded)
			}
			assert.Equal(t, core.DefaultMaxConcurrentLoans, succeeded)

			open, err := store.OpenLoansOfMember(ctx, member.ID)
			require.NoError(t, err)
			assert.Len(t, open, core.DefaultMaxConcurrentLoans)
		})
	}
}

func memberByID(members []core.Member, id uuid.UUID) core.Member {
	for _, m := range members {
		if m.ID == id {
			return m
		}
	}

	return core.Member{}
}
