package shell

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	// RetryAttemptsMetric counts retries by operation, attempt number and error type.
	RetryAttemptsMetric = "lending_retry_attempts_total"
	// RetryDelayMetric records the backoff delay before each retry.
	RetryDelayMetric = "lending_retry_delay_seconds"
	// RetriesExhaustedMetric counts operations that still failed after the last attempt.
	RetriesExhaustedMetric = "lending_retries_exhausted_total"

	labelOperation      = "operation"
	labelAttemptNumber  = "attempt_number"
	labelErrorType      = "error_type"
	labelFinalErrorType = "final_error_type"

	ErrorTypeNone              = "none"
	ErrorTypeTransientConflict = "transient_conflict"
	ErrorTypeBusiness          = "business"
	ErrorTypeContextCanceled   = "context_canceled"
	ErrorTypeDeadlineExceeded  = "context_deadline_exceeded"
	ErrorTypeInfrastructure    = "infrastructure"
	ErrorTypeOther             = "other"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperation is returned when an empty operation name is provided to WithMetrics.
	ErrEmptyOperation = errors.New("operation must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried call went.
type RetryMetrics struct {
	// Attempts is the number of calls made, 1 when the first call settled it.
	Attempts int

	// TotalDelay is the time spent in backoff, excluding the calls themselves.
	TotalDelay time.Duration

	// LastErrorType classifies the final error, ErrorTypeNone on success.
	LastErrorType string

	// RetriesExhausted is true when the last attempt still failed with a retryable error.
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector ledger.MetricsCollector
	operation        string
}

// RetryWithExponentialBackoff calls fn until it succeeds, fails with a non-retryable error
// or maxAttempts is reached.
//
// Retry schedule (default): 0 ms, 10 ms, 20 ms, 40 ms (with 30% jitter).
//
// Only errors carrying ledger.ErrTransientConflict are retried. Business refusals such as
// core.ErrItemNotAvailable are final answers and fail fast, as do timeouts: retrying them
// during overload only adds load.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) (RetryMetrics, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetrics{}, err
		}
	}

	meta := RetryMetrics{LastErrorType: ErrorTypeNone}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			// baseDelay * 2^(attempt-1)
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			config.recordDelay(ctx, attempt, backoffDelay)

			select {
			case <-time.After(backoffDelay):
				meta.TotalDelay += backoffDelay
			case <-ctx.Done():
				meta.LastErrorType = ErrorTypeOf(ctx.Err())
				return meta, ctx.Err()
			}
		}

		meta.Attempts++

		lastErr = fn(ctx)
		meta.LastErrorType = ErrorTypeOf(lastErr)

		if lastErr == nil {
			return meta, nil
		}

		if !IsRetryable(lastErr) {
			return meta, lastErr
		}

		if attempt < config.maxAttempts-1 {
			config.recordAttempt(ctx, attempt+1, lastErr)
		}
	}

	meta.RetriesExhausted = true
	config.recordExhausted(ctx, lastErr)

	return meta, lastErr
}

// IsRetryable reports whether running the operation again may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ledger.ErrTransientConflict)
}

// ErrorTypeOf classifies err for metric labels.
func ErrorTypeOf(err error) string {
	switch {
	case err == nil:
		return ErrorTypeNone
	case errors.Is(err, ledger.ErrTransientConflict):
		return ErrorTypeTransientConflict
	case core.IsBusinessError(err):
		return ErrorTypeBusiness
	case errors.Is(err, context.Canceled):
		return ErrorTypeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeDeadlineExceeded
	case errors.Is(err, core.ErrInfrastructure):
		return ErrorTypeInfrastructure
	default:
		return ErrorTypeOther
	}
}

func (c *retryConfig) recordDelay(ctx context.Context, attempt int, delay time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation:     c.operation,
		labelAttemptNumber: strconv.Itoa(attempt),
	}

	if contextualCollector, ok := c.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, RetryDelayMetric, delay, labels)
		return
	}

	c.metricsCollector.RecordDuration(RetryDelayMetric, delay, labels)
}

func (c *retryConfig) recordAttempt(ctx context.Context, attemptNumber int, err error) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation:     c.operation,
		labelAttemptNumber: strconv.Itoa(attemptNumber),
		labelErrorType:     ErrorTypeOf(err),
	}

	if contextualCollector, ok := c.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, RetryAttemptsMetric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(RetryAttemptsMetric, labels)
}

func (c *retryConfig) recordExhausted(ctx context.Context, err error) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation:      c.operation,
		labelFinalErrorType: ErrorTypeOf(err),
	}

	if contextualCollector, ok := c.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, RetriesExhaustedMetric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(RetriesExhaustedMetric, labels)
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts, the first call included.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter added as a fraction of each backoff delay.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithMetrics sets the metrics collector for retry instrumentation, labeled with operation.
func WithMetrics(collector ledger.MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperation
		}

		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}
