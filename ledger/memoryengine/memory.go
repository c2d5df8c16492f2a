package memoryengine

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

type state struct {
	items   map[uuid.UUID]core.Item
	members map[uuid.UUID]core.Member
	loans   map[uuid.UUID]core.Loan
	rules   map[uuid.UUID]core.BorrowingRule
}

func newState() *state {
	return &state{
		items:   make(map[uuid.UUID]core.Item),
		members: make(map[uuid.UUID]core.Member),
		loans:   make(map[uuid.UUID]core.Loan),
		rules:   make(map[uuid.UUID]core.BorrowingRule),
	}
}

func (s *state) clone() *state {
	return &state{
		items:   maps.Clone(s.items),
		members: maps.Clone(s.members),
		loans:   maps.Clone(s.loans),
		rules:   maps.Clone(s.rules),
	}
}

// Store is the in-memory ledger engine.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// InTx runs fn against a private copy of the state and publishes the copy if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn ledger.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, &tx{state: working}); err != nil {
		return err
	}

	s.state = working

	return nil
}

func (s *Store) read() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// reader returns a view on the committed state. The committed state is never mutated
// in place, only replaced, so the view stays consistent without holding the lock.
func (s *Store) reader() *tx {
	return &tx{state: s.read()}
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (core.Item, error) {
	return s.reader().GetItem(ctx, id)
}

func (s *Store) ListItems(ctx context.Context) ([]core.Item, error) {
	return s.reader().ListItems(ctx)
}

func (s *Store) SaveItem(ctx context.Context, item core.Item) error {
	return s.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveItem(ctx, item)
	})
}

func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return s.reader().GetMember(ctx, id)
}

func (s *Store) ListMembers(ctx context.Context) ([]core.Member, error) {
	return s.reader().ListMembers(ctx)
}

func (s *Store) SaveMember(ctx context.Context, member core.Member) error {
	return s.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveMember(ctx, member)
	})
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return s.reader().GetLoan(ctx, id)
}

func (s *Store) OpenLoanOfItem(ctx context.Context, itemID uuid.UUID) (core.Loan, error) {
	return s.reader().OpenLoanOfItem(ctx, itemID)
}

func (s *Store) OpenLoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return s.reader().OpenLoansOfMember(ctx, memberID)
}

func (s *Store) LoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return s.reader().LoansOfMember(ctx, memberID)
}

func (s *Store) OverdueLoans(ctx context.Context, now time.Time) ([]core.Loan, error) {
	return s.reader().OverdueLoans(ctx, now)
}

func (s *Store) ActiveRule(ctx context.Context) (core.BorrowingRule, error) {
	return s.reader().ActiveRule(ctx)
}

func (s *Store) ListRules(ctx context.Context) ([]core.BorrowingRule, error) {
	return s.reader().ListRules(ctx)
}

func (s *Store) SaveRule(ctx context.Context, rule core.BorrowingRule) error {
	return s.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveRule(ctx, rule)
	})
}

var _ ledger.Store = (*Store)(nil)
