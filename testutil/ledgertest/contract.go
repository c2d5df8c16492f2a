package ledgertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	. "github.com/mediatheque-go/lending/testutil/helper" //nolint:revive
)

// RunStoreContract runs the engine-independent ledger behavior against stores created by newStore.
// Stores may share a database between subtests, all assertions rely on unique ids only.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	t.Run("item round trip", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		item := FixtureItem(t, core.ItemKindDVD)

		// act
		err := store.SaveItem(ctx, item)
		require.NoError(t, err)
		loaded, err := store.GetItem(ctx, item.ID)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, item, loaded)

		items, err := store.ListItems(ctx)
		assert.NoError(t, err)
		assert.Contains(t, items, item)
	})

	t.Run("unknown rows are not found", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		_, err := store.GetItem(ctx, GivenUniqueID(t))
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		_, err = store.GetMember(ctx, GivenUniqueID(t))
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		_, err = store.GetLoan(ctx, GivenUniqueID(t))
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		_, err = store.OpenLoanOfItem(ctx, GivenUniqueID(t))
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("saving an existing item keeps its availability", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
		err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.SetItemAvailability(ctx, item.ID, false)
		})
		require.NoError(t, err)

		// act
		item.Name = "Renamed"
		item.Available = true
		err = store.SaveItem(ctx, item)

		// assert
		assert.NoError(t, err)
		loaded, err := store.GetItem(ctx, item.ID)
		assert.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
		assert.False(t, loaded.Available)
	})

	t.Run("member round trip", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		member := GivenMemberWasRegistered(t, ctx, store)

		member.Blocked = true
		require.NoError(t, store.SaveMember(ctx, member))

		loaded, err := store.GetMember(ctx, member.ID)
		assert.NoError(t, err)
		assert.Equal(t, member, loaded)

		members, err := store.ListMembers(ctx)
		assert.NoError(t, err)
		assert.Contains(t, members, member)
	})

	t.Run("saving an active rule deactivates the others", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		first := GivenRuleWasSaved(t, ctx, store, 2)

		// act
		second := GivenRuleWasSaved(t, ctx, store, 5)

		// assert
		active, err := store.ActiveRule(ctx)
		assert.NoError(t, err)
		assert.Equal(t, second, active)

		rules, err := store.ListRules(ctx)
		assert.NoError(t, err)
		first.Active = false
		assert.Contains(t, rules, first)
		assert.Contains(t, rules, second)
	})

	t.Run("at most one open loan per item", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
		first := GivenMemberWasRegistered(t, ctx, store)
		second := GivenMemberWasRegistered(t, ctx, store)
		existing := GivenLoanWasOpened(t, ctx, store, first.ID, item.ID, FakeClock)

		// act
		err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.InsertLoan(ctx, core.OpenLoan(GivenUniqueID(t), second.ID, item.ID, FakeClock, core.DefaultBorrowPeriod))
		})

		// assert
		assert.ErrorIs(t, err, ledger.ErrOpenLoanExists)
		open, err := store.OpenLoanOfItem(ctx, item.ID)
		assert.NoError(t, err)
		assert.Equal(t, existing, open)
	})

	t.Run("a closed loan frees the item for a new loan", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindCD)
		member := GivenMemberWasRegistered(t, ctx, store)
		loan := GivenLoanWasOpened(t, ctx, store, member.ID, item.ID, FakeClock)

		// act
		err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.CloseLoan(ctx, loan.ID, FakeClock.Add(time.Hour))
		})
		require.NoError(t, err)
		again := GivenLoanWasOpened(t, ctx, store, member.ID, item.ID, FakeClock.Add(2*time.Hour))

		// assert
		closed, err := store.GetLoan(ctx, loan.ID)
		assert.NoError(t, err)
		assert.False(t, closed.IsOpen())
		assert.Equal(t, core.ToTimestamp(FakeClock.Add(time.Hour)), *closed.ReturnedAt)

		loans, err := store.LoansOfMember(ctx, member.ID)
		assert.NoError(t, err)
		assert.Equal(t, []core.Loan{again, closed}, loans)

		open, err := store.OpenLoansOfMember(ctx, member.ID)
		assert.NoError(t, err)
		assert.Equal(t, []core.Loan{again}, open)
	})

	t.Run("closing a loan twice fails", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
		member := GivenMemberWasRegistered(t, ctx, store)
		loan := GivenLoanWasOpened(t, ctx, store, member.ID, item.ID, FakeClock)

		closeLoan := func(ctx context.Context, tx ledger.Tx) error {
			return tx.CloseLoan(ctx, loan.ID, FakeClock.Add(time.Hour))
		}

		assert.NoError(t, store.InTx(ctx, closeLoan))
		assert.ErrorIs(t, store.InTx(ctx, closeLoan), ledger.ErrLoanAlreadyClosed)
	})

	t.Run("overdue loans", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		member := GivenMemberWasRegistered(t, ctx, store)
		moreOverdue := GivenOverdueLoanWasOpened(t, ctx, store, member.ID, 48*time.Hour)
		lessOverdue := GivenOverdueLoanWasOpened(t, ctx, store, member.ID, time.Hour)
		notDue := GivenOverdueLoanWasOpened(t, ctx, store, member.ID, -time.Hour)

		// act
		overdue, err := store.OverdueLoans(ctx, FakeClock)

		// assert
		assert.NoError(t, err)
		var ofMember []core.Loan
		for _, loan := range overdue {
			if loan.MemberID == member.ID {
				ofMember = append(ofMember, loan)
			}
		}
		assert.Equal(t, []core.Loan{moreOverdue, lessOverdue}, ofMember)
		assert.NotContains(t, overdue, notDue)
	})

	t.Run("failed transactions leave no trace", func(t *testing.T) {
		// arrange
		ctx := context.Background()
		store := newStore(t)
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
		member := GivenMemberWasRegistered(t, ctx, store)
		errAbort := errors.New("abort")

		// act
		err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			if _, err := tx.LockMember(ctx, member.ID); err != nil {
				return err
			}
			if _, err := tx.LockItem(ctx, item.ID); err != nil {
				return err
			}
			if err := tx.InsertLoan(ctx, core.OpenLoan(GivenUniqueID(t), member.ID, item.ID, FakeClock, core.DefaultBorrowPeriod)); err != nil {
				return err
			}
			if err := tx.SetItemAvailability(ctx, item.ID, false); err != nil {
				return err
			}

			return errAbort
		})

		// assert
		assert.ErrorIs(t, err, errAbort)
		_, err = store.OpenLoanOfItem(ctx, item.ID)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		loaded, err := store.GetItem(ctx, item.ID)
		assert.NoError(t, err)
		assert.True(t, loaded.Available)
	})

	t.Run("locks read the current row", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
		member := GivenBlockedMemberWasRegistered(t, ctx, store)
		loan := GivenLoanWasOpened(t, ctx, store, member.ID, item.ID, FakeClock)

		err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			lockedMember, err := tx.LockMember(ctx, member.ID)
			assert.NoError(t, err)
			assert.Equal(t, member, lockedMember)

			lockedItem, err := tx.LockItem(ctx, item.ID)
			assert.NoError(t, err)
			assert.Equal(t, item, lockedItem)

			lockedLoan, err := tx.LockLoan(ctx, loan.ID)
			assert.NoError(t, err)
			assert.Equal(t, loan, lockedLoan)

			_, err = tx.LockLoan(ctx, GivenUniqueID(t))
			assert.ErrorIs(t, err, ledger.ErrNotFound)

			return nil
		})
		assert.NoError(t, err)
	})
}
