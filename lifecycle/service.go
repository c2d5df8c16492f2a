package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/standingcache"
)

var (
	// ErrNilStore is returned by NewService when no ledger is given.
	ErrNilStore = errors.New("ledger store must not be nil")

	// ErrInvalidBorrowPeriod is returned when the borrow period is not positive.
	ErrInvalidBorrowPeriod = errors.New("borrow period must be positive")

	// ErrInvalidDefaultLimit is returned when the default loan limit is not positive.
	ErrInvalidDefaultLimit = errors.New("default loan limit must be positive")

	// ErrNilIDGenerator is returned when WithIDGenerator receives nil.
	ErrNilIDGenerator = errors.New("id generator must not be nil")
)

// Service runs borrow and return transactions against a ledger.
type Service struct {
	store            ledger.Store
	borrowPeriod     time.Duration
	defaultLimit     int
	standingCache    *standingcache.Cache
	standingCacheTTL time.Duration
	newID            func() (uuid.UUID, error)
	logger           ledger.Logger
	contextualLogger ledger.ContextualLogger
	metricsCollector ledger.MetricsCollector
	tracingCollector ledger.TracingCollector
}

// Option configures a Service.
type Option func(*Service) error

// WithBorrowPeriod sets the time between borrowing and the due date. Defaults to core.DefaultBorrowPeriod.
func WithBorrowPeriod(period time.Duration) Option {
	return func(s *Service) error {
		if period <= 0 {
			return ErrInvalidBorrowPeriod
		}

		s.borrowPeriod = period

		return nil
	}
}

// WithDefaultLoanLimit sets the loan limit applied while no borrowing rule is active.
func WithDefaultLoanLimit(limit int) Option {
	return func(s *Service) error {
		if limit <= 0 {
			return ErrInvalidDefaultLimit
		}

		s.defaultLimit = limit

		return nil
	}
}

// WithStandingCache replaces the standing cache the service builds by default.
// The cache's loader must read the same ledger as the service.
func WithStandingCache(cache *standingcache.Cache) Option {
	return func(s *Service) error {
		s.standingCache = cache
		return nil
	}
}

// WithStandingCacheTTL sets the TTL of the default standing cache.
func WithStandingCacheTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		s.standingCacheTTL = ttl
		return nil
	}
}

// WithIDGenerator overrides how loan ids are created. Defaults to uuid.NewV7.
func WithIDGenerator(newID func() (uuid.UUID, error)) Option {
	return func(s *Service) error {
		if newID == nil {
			return ErrNilIDGenerator
		}

		s.newID = newID

		return nil
	}
}

// WithLogger sets the logger for the Service.
//
// Info level: completed operations
// Warn level: business refusals with their reason
// Error level: infrastructure failures.
func WithLogger(logger ledger.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a logger that receives the operation's context, e.g. for trace correlation.
func WithContextualLogger(logger ledger.ContextualLogger) Option {
	return func(s *Service) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Service and its default standing cache.
func WithMetrics(collector ledger.MetricsCollector) Option {
	return func(s *Service) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector. Every operation gets one span.
func WithTracing(collector ledger.TracingCollector) Option {
	return func(s *Service) error {
		s.tracingCollector = collector
		return nil
	}
}

// NewService creates a Service on top of store.
func NewService(store ledger.Store, options ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		store:            store,
		borrowPeriod:     core.DefaultBorrowPeriod,
		defaultLimit:     core.DefaultMaxConcurrentLoans,
		standingCacheTTL: standingcache.DefaultTTL,
		newID:            uuid.NewV7,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if s.standingCache == nil {
		cacheOptions := []standingcache.Option{standingcache.WithTTL(s.standingCacheTTL)}
		if s.metricsCollector != nil {
			cacheOptions = append(cacheOptions, standingcache.WithMetrics(s.metricsCollector))
		}

		s.standingCache = standingcache.New(StandingLoader(store), cacheOptions...)
	}

	return s, nil
}

// StandingLoader derives a member's standing from the ledger's open loans.
// It always reads from the primary: a value loaded from a lagging replica would be cached
// under the current generation and outlive the invalidation that preceded it.
func StandingLoader(loans ledger.Loans) standingcache.Loader {
	return func(ctx context.Context, memberID uuid.UUID) (core.Standing, error) {
		openLoans, err := loans.OpenLoansOfMember(ledger.WithStrongConsistency(ctx), memberID)
		if err != nil {
			return core.Standing{}, err
		}

		return core.DeriveStanding(openLoans), nil
	}
}

// BorrowPeriod returns the configured borrow period.
func (s *Service) BorrowPeriod() time.Duration {
	return s.borrowPeriod
}

// invalidateStanding drops the cached standing of a member whose loans changed.
func (s *Service) invalidateStanding(memberID uuid.UUID) {
	if memberID == uuid.Nil {
		return
	}

	s.standingCache.Invalidate(memberID)
}
