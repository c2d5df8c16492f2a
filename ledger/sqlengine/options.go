package sqlengine

import (
	"github.com/mediatheque-go/lending/ledger"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithTablePrefix prefixes all table and index names, e.g. to run several ledgers in one schema.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) error {
		if prefix == "" {
			return ledger.ErrEmptyTablePrefix
		}

		s.tables = newTableNames(prefix)

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Transaction outcomes and open loan conflicts (production-safe)
// Warn level: Non-critical issues like rollback or cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger ledger.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives query and transaction durations, database errors and open loan conflicts.
func WithMetrics(collector ledger.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// A span is created for every transaction and every query outside a transaction.
func WithTracing(collector ledger.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// Log messages then carry trace and span ids when tracing is enabled.
func WithContextualLogger(logger ledger.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}
