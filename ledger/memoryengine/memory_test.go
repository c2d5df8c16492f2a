package memoryengine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/memoryengine"
	. "github.com/mediatheque-go/lending/testutil/helper" //nolint:revive
	"github.com/mediatheque-go/lending/testutil/ledgertest"
)

func Test_MemoryStore_Contract(t *testing.T) {
	ledgertest.RunStoreContract(t, func(_ *testing.T) ledger.Store {
		return memoryengine.NewStore()
	})
}

func Test_MemoryStore_ConcurrentInsertsForOneItem_OnlyOneWins(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memoryengine.NewStore()
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
	member := GivenMemberWasRegistered(t, ctx, store)

	const workers = 16
	results := make([]error, workers)
	wg := sync.WaitGroup{}

	// act
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				return tx.InsertLoan(ctx, core.OpenLoan(GivenUniqueID(t), member.ID, item.ID, FakeClock, core.DefaultBorrowPeriod))
			})
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
		assert.ErrorIs(t, err, ledger.ErrOpenLoanExists)
	}
	assert.Equal(t, 1, succeeded)
}

func Test_MemoryStore_InTx_RespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := memoryengine.NewStore().InTx(ctx, func(context.Context, ledger.Tx) error {
		t.Fatal("must not run")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
