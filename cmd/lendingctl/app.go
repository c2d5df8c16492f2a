package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mediatheque-go/lending/config"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/memoryengine"
	"github.com/mediatheque-go/lending/ledger/sqlengine"
	"github.com/mediatheque-go/lending/lifecycle"
	"github.com/mediatheque-go/lending/oteladapters"
	"github.com/mediatheque-go/lending/shell"
)

const instrumentationName = "github.com/mediatheque-go/lending/cmd/lendingctl"

var ErrInvalidNow = errors.New("invalid --now, expected RFC 3339")

type migrator interface {
	Migrate(ctx context.Context) error
}

// app holds everything a command needs. Its store and service are built lazily on the
// first command so that --driver can override the environment.
type app struct {
	out    io.Writer
	errOut io.Writer

	driver string
	nowRaw string

	cfg      config.Config
	logger   *oteladapters.SlogBridgeLogger
	store    ledger.Store
	migrator migrator
	service  *lifecycle.Service
	metrics  ledger.MetricsCollector
	tracing  ledger.TracingCollector
	closers  []func() error
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

func (a *app) prepare(ctx context.Context) error {
	if a.service != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.driver != "" {
		cfg.DBDriver = a.driver
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	a.cfg = cfg

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	a.logger = oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}),
	)

	if cfg.OTLPEndpoint != "" {
		if err := a.setupObservability(ctx); err != nil {
			return err
		}
	}

	if a.store == nil {
		if err := a.openStore(ctx); err != nil {
			return err
		}
	}

	serviceOptions := []lifecycle.Option{
		lifecycle.WithBorrowPeriod(cfg.BorrowPeriod),
		lifecycle.WithDefaultLoanLimit(cfg.DefaultMaxLoans),
		lifecycle.WithStandingCacheTTL(cfg.StandingCacheTTL),
		lifecycle.WithContextualLogger(a.logger),
	}

	if a.metrics != nil {
		serviceOptions = append(serviceOptions, lifecycle.WithMetrics(a.metrics))
	}

	if a.tracing != nil {
		serviceOptions = append(serviceOptions, lifecycle.WithTracing(a.tracing))
	}

	service, err := lifecycle.NewService(a.store, serviceOptions...)
	if err != nil {
		return err
	}

	a.service = service

	return nil
}

func (a *app) setupObservability(ctx context.Context) error {
	providers, err := config.NewObservabilityProviders(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("setting up observability: %w", err)
	}

	a.closers = append(a.closers, providers.Shutdown)
	a.metrics = oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(instrumentationName))
	a.tracing = oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(instrumentationName))

	return nil
}

func (a *app) openStore(ctx context.Context) error {
	var (
		store *sqlengine.Store
		err   error
	)

	options := []sqlengine.Option{sqlengine.WithContextualLogger(a.logger)}
	if a.metrics != nil {
		options = append(options, sqlengine.WithMetrics(a.metrics))
	}
	if a.tracing != nil {
		options = append(options, sqlengine.WithTracing(a.tracing))
	}

	switch a.cfg.DBDriver {
	case config.DriverMemory:
		a.store = memoryengine.NewStore()
		return nil

	case config.DriverSQLite:
		db, openErr := config.SQLiteDB(ctx, a.cfg.SQLitePath)
		if openErr != nil {
			return openErr
		}
		a.closers = append(a.closers, db.Close)
		store, err = sqlengine.NewStoreFromSQLite(db, options...)

	case config.DriverPGXPool:
		pool, openErr := config.PostgresPGXPool(ctx, a.cfg)
		if openErr != nil {
			return openErr
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		replica, openErr := config.PostgresPGXReplicaPool(ctx, a.cfg)
		if openErr != nil {
			return openErr
		}

		if replica != nil {
			a.closers = append(a.closers, func() error { replica.Close(); return nil })
			store, err = sqlengine.NewStoreFromPGXPoolAndReplica(pool, replica, options...)
		} else {
			store, err = sqlengine.NewStoreFromPGXPool(pool, options...)
		}

	case config.DriverSQLDB:
		db, openErr := config.PostgresSQLDB(ctx, a.cfg)
		if openErr != nil {
			return openErr
		}
		a.closers = append(a.closers, db.Close)
		store, err = sqlengine.NewStoreFromSQLDB(db, options...)

	case config.DriverSQLXDB:
		db, openErr := config.PostgresSQLX(ctx, a.cfg)
		if openErr != nil {
			return openErr
		}
		a.closers = append(a.closers, db.Close)
		store, err = sqlengine.NewStoreFromSQLX(db, options...)

	default:
		return errors.Join(config.ErrUnsupportedDriver, errors.New(a.cfg.DBDriver))
	}

	if err != nil {
		return err
	}

	a.store = store
	a.migrator = store

	return nil
}

// close releases connections and flushes telemetry in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	return errors.Join(errs...)
}

func (a *app) now() (time.Time, error) {
	if a.nowRaw == "" {
		return time.Now().UTC(), nil
	}

	now, err := time.Parse(time.RFC3339, a.nowRaw)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidNow, err)
	}

	return now.UTC(), nil
}

// retry runs fn with the backoff policy used for mutating commands.
func (a *app) retry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	options := []shell.RetryOption{}
	if a.metrics != nil {
		options = append(options, shell.WithMetrics(a.metrics, operation))
	}

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, fn, options...)
	if retryMetrics.Attempts > 1 {
		a.logger.DebugContext(ctx, "command retried",
			"operation", operation,
			"attempts", retryMetrics.Attempts,
			"total_delay_ms", retryMetrics.TotalDelay.Milliseconds(),
		)
	}

	return err
}
