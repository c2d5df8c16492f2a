package lifecycle_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/memoryengine"
	"github.com/mediatheque-go/lending/ledger/sqlengine"
	"github.com/mediatheque-go/lending/lifecycle"
	"github.com/mediatheque-go/lending/testutil/storewrapper"
)

type engine struct {
	name     string
	newStore func(t *testing.T) ledger.Store
}

// engines returns every ledger engine the service is tested against.
// The SQL engine is SQLite unless ADAPTER_TYPE selects a Postgres adapter.
func engines() []engine {
	return []engine{
		{
			name: "memory",
			newStore: func(*testing.T) ledger.Store {
				return memoryengine.NewStore()
			},
		},
		{
			name: "sql/" + storewrapper.AdapterTypeFromEnv(),
			newStore: func(t *testing.T) ledger.Store {
				return storewrapper.CreateWrapper(t, sqlengine.WithTablePrefix("lifecycle_")).GetStore()
			},
		},
	}
}

func givenService(t *testing.T, store ledger.Store, options ...lifecycle.Option) *lifecycle.Service {
	t.Helper()

	service, err := lifecycle.NewService(store, options...)
	require.NoError(t, err, "error in arranging the service")

	return service
}

// conflictingStore simulates a concurrent transaction that opened a loan for the item
// between the eligibility check and the insert.
type conflictingStore struct {
	ledger.Store
}

func (s conflictingStore) InTx(ctx context.Context, fn ledger.TxFunc) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return fn(ctx, conflictingTx{Tx: tx})
	})
}

type conflictingTx struct {
	ledger.Tx
}

func (conflictingTx) InsertLoan(context.Context, core.Loan) error {
	return ledger.ErrOpenLoanExists
}

// failingStore fails every transaction and every loan read with err.
type failingStore struct {
	ledger.Store
	err error
}

func (s failingStore) InTx(context.Context, ledger.TxFunc) error {
	return s.err
}

func (s failingStore) LoansOfMember(context.Context, uuid.UUID) ([]core.Loan, error) {
	return nil, s.err
}

// consistencyRecordingStore records the consistency level of every open-loans read made
// outside a transaction.
type consistencyRecordingStore struct {
	ledger.Store

	mu     sync.Mutex
	levels []ledger.ConsistencyLevel
}

func (s *consistencyRecordingStore) OpenLoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	s.mu.Lock()
	s.levels = append(s.levels, ledger.GetConsistencyLevel(ctx))
	s.mu.Unlock()

	return s.Store.OpenLoansOfMember(ctx, memberID)
}

func (s *consistencyRecordingStore) recordedLevels() []ledger.ConsistencyLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ledger.ConsistencyLevel(nil), s.levels...)
}
