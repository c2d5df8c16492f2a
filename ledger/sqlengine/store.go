package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/sqlengine/internal/adapters"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

// ErrMigrationFailed is returned by Migrate when a schema statement fails.
var ErrMigrationFailed = errors.New("migration failed")

// Store is the SQL ledger engine. It is safe for concurrent use.
type Store struct {
	db               adapters.DBAdapter
	dialect          goqu.DialectWrapper
	dialectName      string
	tables           tableNames
	logger           ledger.Logger
	metricsCollector ledger.MetricsCollector
	tracingCollector ledger.TracingCollector
	contextualLogger ledger.ContextualLogger
}

func newStore(db adapters.DBAdapter, dialectName string, options ...Option) (*Store, error) {
	s := &Store{
		db:          db,
		dialect:     goqu.Dialect(dialectName),
		dialectName: dialectName,
		tables:      newTableNames(""),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// NewStoreFromPGXPool creates a new PostgreSQL Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), dialectPostgres, options...)
}

// NewStoreFromPGXPoolAndReplica creates a new PostgreSQL Store using a primary and a replica pgx Pool.
// Reads outside transactions are served by the replica when the context asks for
// ledger.EventualConsistency.
func NewStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil || replica == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(db, replica), dialectPostgres, options...)
}

// NewStoreFromSQLDB creates a new PostgreSQL Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), dialectPostgres, options...)
}

// NewStoreFromSQLX creates a new PostgreSQL Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), dialectPostgres, options...)
}

// NewStoreFromSQLite creates a new SQLite Store using a sql.DB opened with the "sqlite" driver.
// The pool is limited to one connection, SQLite transactions are serialized that way.
func NewStoreFromSQLite(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ledger.ErrNilDatabaseConnection
	}

	db.SetMaxOpenConns(1)

	return newStore(adapters.NewSQLAdapter(db), dialectSQLite, options...)
}

// InTx runs fn in a database transaction. It commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn ledger.TxFunc) error {
	tracer, ctx := s.startTxTracing(ctx)
	metrics := s.startTxMetrics(ctx)
	start := time.Now()

	dbTx, err := s.db.BeginTx(ctx)
	if err != nil {
		s.logError(ctx, logMsgBeginTxFailed, err)
		metrics.recordError(errorTypeBeginTx, time.Since(start))
		tracer.finishError(errorTypeBeginTx, time.Since(start))

		return core.NewInfrastructureError(operationTransaction, driverError(ledger.ErrBeginTxFailed, err))
	}

	if fnErr := fn(ctx, &repository{store: s, q: dbTx, inTx: true}); fnErr != nil {
		if rollbackErr := dbTx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			s.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}

		duration := time.Since(start)
		s.logOperation(ctx, logMsgTxRolledBack, logAttrReason, fnErr.Error(), logAttrDurationMS, s.toMilliseconds(duration))
		metrics.recordRollback(duration)
		tracer.finishError(errorTypeRolledBack, duration)

		return fnErr
	}

	if commitErr := dbTx.Commit(ctx); commitErr != nil {
		s.logError(ctx, logMsgCommitFailed, commitErr)
		metrics.recordError(errorTypeCommit, time.Since(start))
		tracer.finishError(errorTypeCommit, time.Since(start))

		return core.NewInfrastructureError(operationTransaction, driverError(ledger.ErrCommitFailed, commitErr))
	}

	duration := time.Since(start)
	s.logQueryWithDuration(ctx, logActionCommit, duration)
	metrics.recordSuccess(duration)
	tracer.finishSuccess(-1, duration)

	return nil
}

// reader returns a repository for reads outside a transaction.
func (s *Store) reader(ctx context.Context) *repository {
	eventual := ledger.GetConsistencyLevel(ctx) == ledger.EventualConsistency

	return &repository{store: s, q: s.db.Reader(eventual)}
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (core.Item, error) {
	return s.reader(ctx).GetItem(ctx, id)
}

func (s *Store) ListItems(ctx context.Context) ([]core.Item, error) {
	return s.reader(ctx).ListItems(ctx)
}

func (s *Store) SaveItem(ctx context.Context, item core.Item) error {
	return s.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveItem(ctx, item)
	})
}

func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return s.reader(ctx).GetMember(ctx, id)
}

func (s *Store) ListMembers(ctx context.Context) ([]core.Member, error) {
	return s.reader(ctx).ListMembers(ctx)
}

func (s *Store) SaveMember(ctx context.Context, member core.Member) error {
	return s.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveMember(ctx, member)
	})
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return s.reader(ctx).GetLoan(ctx, id)
}

func (s *Store) OpenLoanOfItem(ctx context.Context, itemID uuid.UUID) (core.Loan, error) {
	return s.reader(ctx).OpenLoanOfItem(ctx, itemID)
}

func (s *Store) OpenLoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return s.reader(ctx).OpenLoansOfMember(ctx, memberID)
}

func (s *Store) LoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	return s.reader(ctx).LoansOfMember(ctx, memberID)
}

func (s *Store) OverdueLoans(ctx context.Context, now time.Time) ([]core.Loan, error) {
	return s.reader(ctx).OverdueLoans(ctx, now)
}

func (s *Store) ActiveRule(ctx context.Context) (core.BorrowingRule, error) {
	return s.reader(ctx).ActiveRule(ctx)
}

func (s *Store) ListRules(ctx context.Context) ([]core.BorrowingRule, error) {
	return s.reader(ctx).ListRules(ctx)
}

func (s *Store) SaveRule(ctx context.Context, rule core.BorrowingRule) error {
	return s.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveRule(ctx, rule)
	})
}

var _ ledger.Store = (*Store)(nil)
