package sqlengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/sqlengine/internal/adapters"
)

const (
	logMsgBuildQueryFailed = "failed to build query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgBeginTxFailed    = "failed to begin transaction"
	logMsgCommitFailed     = "failed to commit transaction"
	logMsgRollbackFailed   = "failed to roll back transaction"
	logMsgMigrationFailed  = "schema migration failed"
	logMsgMigrated         = "schema migrated"
	logMsgTxRolledBack     = "transaction rolled back"
	logMsgOpenLoanConflict = "open loan conflict detected"
	logMsgSQLExecuted      = "executed sql for: "
	logMsgOperation        = "ledger operation: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrOperation       = "operation"
	logAttrReason          = "reason"
	logAttrItemID          = "item_id"
	logAttrDurationMS      = "duration_ms"
	logAttrTablePrefix     = "table_prefix"
	logActionCommit        = "commit"

	metricQueryDuration       = "ledger_query_duration_seconds"
	metricTransactionDuration = "ledger_transaction_duration_seconds"
	metricRowsReturned        = "ledger_rows_returned"
	metricDatabaseErrors      = "ledger_database_errors_total"
	metricOpenLoanConflicts   = "ledger_open_loan_conflicts_total"
	metricRollbacks           = "ledger_transaction_rollbacks_total"

	spanNameTransaction = "ledger.transaction"
	spanNameQuery       = "ledger.query"
	spanAttrOperation   = "operation"
	spanAttrErrorType   = "error_type"
	spanAttrRowCount    = "row_count"
	spanAttrDurationMS  = "duration_ms"
	spanAttrDialect     = "db.dialect"

	labelStatus = "status"

	statusSuccess = "success"
	statusError   = "error"

	operationTransaction       = "transaction"
	operationGetItem           = "get_item"
	operationLockItem          = "lock_item"
	operationListItems         = "list_items"
	operationSaveItem          = "save_item"
	operationSetAvailability   = "set_item_availability"
	operationGetMember         = "get_member"
	operationLockMember        = "lock_member"
	operationListMembers       = "list_members"
	operationSaveMember        = "save_member"
	operationGetLoan           = "get_loan"
	operationLockLoan          = "lock_loan"
	operationOpenLoanOfItem    = "open_loan_of_item"
	operationOpenLoansOfMember = "open_loans_of_member"
	operationLoansOfMember     = "loans_of_member"
	operationOverdueLoans      = "overdue_loans"
	operationInsertLoan        = "insert_loan"
	operationCloseLoan         = "close_loan"
	operationActiveRule        = "active_rule"
	operationListRules         = "list_rules"
	operationSaveRule          = "save_rule"

	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseQuery = "database_query"
	errorTypeRowScan       = "row_scan"
	errorTypeBeginTx       = "begin_tx"
	errorTypeCommit        = "commit"
	errorTypeRolledBack    = "rolled_back"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (s *Store) logQueryWithDuration(ctx context.Context, action string, duration time.Duration, args ...any) {
	allArgs := append([]any{logAttrDurationMS, s.toMilliseconds(duration)}, args...)

	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, allArgs...)
	case s.logger != nil:
		s.logger.Debug(logMsgSQLExecuted+action, allArgs...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (s *Store) logOperation(ctx context.Context, action string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case s.logger != nil:
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, message string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.WarnContext(ctx, message, args...)
	case s.logger != nil:
		s.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	case s.logger != nil:
		s.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (s *Store) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// closeRows closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (s *Store) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metric, duration, labels)
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

func (s *Store) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metric, value, labels)
}

// recordQueryMetrics records the duration of a single statement and counts failures.
func (s *Store) recordQueryMetrics(ctx context.Context, operation string, duration time.Duration, status string) {
	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}
	s.recordDuration(ctx, metricQueryDuration, duration, labels)

	if status == statusError {
		s.incrementCounter(ctx, metricDatabaseErrors, labels)
	}
}

// recordOpenLoanConflict reports that InsertLoan lost the race for an item.
func (s *Store) recordOpenLoanConflict(ctx context.Context, itemID uuid.UUID) {
	s.logOperation(ctx, logMsgOpenLoanConflict, logAttrItemID, itemID.String())
	s.incrementCounter(ctx, metricOpenLoanConflicts, map[string]string{spanAttrOperation: operationInsertLoan})
}

// === Tracing Observer Pattern ===

// tracingObserver encapsulates the span lifecycle of a transaction or a query.
type tracingObserver struct {
	store *Store
	span  ledger.SpanContext
}

func (s *Store) startSpan(ctx context.Context, name string, attrs map[string]string) (*tracingObserver, context.Context) {
	if s.tracingCollector == nil {
		return &tracingObserver{store: s}, ctx
	}

	attrs[spanAttrDialect] = s.dialectName
	newCtx, span := s.tracingCollector.StartSpan(ctx, name, attrs)

	return &tracingObserver{store: s, span: span}, newCtx
}

func (s *Store) startTxTracing(ctx context.Context) (*tracingObserver, context.Context) {
	return s.startSpan(ctx, spanNameTransaction, map[string]string{spanAttrOperation: operationTransaction})
}

func (r *repository) startQueryTracing(ctx context.Context, operation string) (context.Context, *tracingObserver) {
	tracer, newCtx := r.store.startSpan(ctx, spanNameQuery, map[string]string{spanAttrOperation: operation})

	return newCtx, tracer
}

func (to *tracingObserver) finishError(errorType string, duration time.Duration) {
	if to.span == nil {
		return
	}

	attrs := map[string]string{spanAttrErrorType: errorType}
	if duration > 0 {
		attrs[spanAttrDurationMS] = fmt.Sprintf("%.2f", to.store.toMilliseconds(duration))
	}

	to.store.tracingCollector.FinishSpan(to.span, statusError, attrs)
}

func (to *tracingObserver) finishSuccess(rowCount int, duration time.Duration) {
	if to.span == nil {
		return
	}

	attrs := map[string]string{spanAttrDurationMS: fmt.Sprintf("%.2f", to.store.toMilliseconds(duration))}
	if rowCount >= 0 {
		attrs[spanAttrRowCount] = fmt.Sprintf("%d", rowCount)
	}

	to.store.tracingCollector.FinishSpan(to.span, statusSuccess, attrs)
}

// === Metrics Observer Pattern ===

// txMetricsObserver encapsulates the metrics collection for transactions.
type txMetricsObserver struct {
	store *Store
	ctx   context.Context
}

func (s *Store) startTxMetrics(ctx context.Context) *txMetricsObserver {
	return &txMetricsObserver{store: s, ctx: ctx}
}

func (tmo *txMetricsObserver) recordSuccess(duration time.Duration) {
	tmo.store.recordDuration(tmo.ctx, metricTransactionDuration, duration, map[string]string{labelStatus: statusSuccess})
}

// recordRollback records a transaction whose function failed, business refusals included.
func (tmo *txMetricsObserver) recordRollback(duration time.Duration) {
	tmo.store.recordDuration(tmo.ctx, metricTransactionDuration, duration, map[string]string{labelStatus: statusError})
	tmo.store.incrementCounter(tmo.ctx, metricRollbacks, map[string]string{spanAttrOperation: operationTransaction})
}

func (tmo *txMetricsObserver) recordError(errorType string, duration time.Duration) {
	labels := map[string]string{labelStatus: statusError, spanAttrErrorType: errorType}
	tmo.store.recordDuration(tmo.ctx, metricTransactionDuration, duration, labels)
	tmo.store.incrementCounter(tmo.ctx, metricDatabaseErrors, map[string]string{spanAttrOperation: operationTransaction, spanAttrErrorType: errorType})
}
