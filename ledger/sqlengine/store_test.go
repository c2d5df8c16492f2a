package sqlengine_test

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/sqlengine"
	. "github.com/mediatheque-go/lending/testutil/helper" //nolint:revive
	"github.com/mediatheque-go/lending/testutil/ledgertest"
	"github.com/mediatheque-go/lending/testutil/storewrapper"
)

func Test_SQLStore_Contract(t *testing.T) {
	ledgertest.RunStoreContract(t, func(t *testing.T) ledger.Store {
		return storewrapper.CreateWrapper(t).GetStore()
	})
}

func Test_SQLStore_Contract_WithTablePrefix(t *testing.T) {
	ledgertest.RunStoreContract(t, func(t *testing.T) ledger.Store {
		return storewrapper.CreateWrapper(t, sqlengine.WithTablePrefix("branch_north_")).GetStore()
	})
}

func Test_NewStore_ShouldFail_WithNilDatabaseConnection(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func() (*sqlengine.Store, error)
	}{
		{
			name: "NewStoreFromPGXPool with nil",
			factoryFunc: func() (*sqlengine.Store, error) {
				return sqlengine.NewStoreFromPGXPool(nil)
			},
		},
		{
			name: "NewStoreFromPGXPoolAndReplica with nil replica",
			factoryFunc: func() (*sqlengine.Store, error) {
				return sqlengine.NewStoreFromPGXPoolAndReplica(&pgxpool.Pool{}, nil)
			},
		},
		{
			name: "NewStoreFromSQLDB with nil",
			factoryFunc: func() (*sqlengine.Store, error) {
				return sqlengine.NewStoreFromSQLDB(nil)
			},
		},
		{
			name: "NewStoreFromSQLX with nil",
			factoryFunc: func() (*sqlengine.Store, error) {
				return sqlengine.NewStoreFromSQLX((*sqlx.DB)(nil))
			},
		},
		{
			name: "NewStoreFromSQLite with nil",
			factoryFunc: func() (*sqlengine.Store, error) {
				return sqlengine.NewStoreFromSQLite((*sql.DB)(nil))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := tc.factoryFunc()

			assert.ErrorIs(t, err, ledger.ErrNilDatabaseConnection)
			assert.Nil(t, store)
		})
	}
}

func Test_NewStore_ShouldFail_WithEmptyTablePrefix(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = sqlengine.NewStoreFromSQLite(db, sqlengine.WithTablePrefix(""))

	assert.ErrorIs(t, err, ledger.ErrEmptyTablePrefix)
}

func Test_Migrate_IsIdempotent(t *testing.T) {
	store := storewrapper.CreateWrapper(t).GetStore()

	assert.NoError(t, store.Migrate(context.Background()))
}

func Test_InsertLoan_ConcurrentForOneItem_OnlyOneWins(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapper(t).GetStore()
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)

	const workers = 12
	members := make([]core.Member, workers)
	for i := range members {
		members[i] = GivenMemberWasRegistered(t, ctx, store)
	}

	results := make([]error, workers)
	wg := sync.WaitGroup{}

	// act
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				if _, err := tx.LockItem(ctx, item.ID); err != nil {
					return err
				}
				return tx.InsertLoan(ctx, core.OpenLoan(GivenUniqueID(t), members[i].ID, item.ID, FakeClock, core.DefaultBorrowPeriod))
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

func Test_SQLStore_RecordsObservability(t *testing.T) {
	// arrange
	ctx := context.Background()
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	logs := NewLogHandlerSpy()
	store := storewrapper.CreateWrapper(
		t,
		sqlengine.WithMetrics(metrics),
		sqlengine.WithTracing(tracing),
		sqlengine.WithLogger(slog.New(logs)),
	).GetStore()
	item := GivenItemWasAdded(t, ctx, store, core.ItemKindBook)
	member := GivenMemberWasRegistered(t, ctx, store)
	GivenLoanWasOpened(t, ctx, store, member.ID, item.ID, FakeClock)

	// act
	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertLoan(ctx, core.OpenLoan(GivenUniqueID(t), member.ID, item.ID, FakeClock, core.DefaultBorrowPeriod))
	})
	_, _ = store.GetItem(ctx, item.ID)

	// assert
	assert.ErrorIs(t, err, ledger.ErrOpenLoanExists)

	assert.Equal(t, 1, metrics.CounterCount("ledger_open_loan_conflicts_total", nil))
	assert.GreaterOrEqual(t, metrics.CounterCount("ledger_transaction_rollbacks_total", nil), 1)
	assert.True(t, metrics.HasDurationRecord("ledger_transaction_duration_seconds", map[string]string{"status": "success"}))
	assert.True(t, metrics.HasDurationRecord("ledger_query_duration_seconds", map[string]string{"operation": "get_item", "status": "success"}))
	assert.Positive(t, metrics.ContextualCallCount())

	assert.NotEmpty(t, tracing.SpanRecordsNamed("ledger.transaction"))
	assert.NotEmpty(t, tracing.SpanRecordsNamed("ledger.query"))
	assert.True(t, tracing.AllFinished())

	assert.True(t, logs.HasRecord(slog.LevelInfo, "open loan conflict detected"))
	assert.True(t, logs.HasRecord(slog.LevelDebug, "executed sql for: get_item"))
	assert.False(t, logs.HasRecord(slog.LevelError, ""), "a lost race is not an error")
}

func Test_SQLStore_ReadsWithEventualConsistency(t *testing.T) {
	// arrange
	ctx := ledger.WithEventualConsistency(context.Background())
	store := storewrapper.CreateWrapper(t).GetStore()
	member := GivenMemberWasRegistered(t, ctx, store)

	// act
	loaded, err := store.GetMember(ctx, member.ID)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, member, loaded)
}
