package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

const (
	logMsgCompleted = "lifecycle operation completed"
	logMsgRejected  = "lifecycle operation rejected"
	logMsgFailed    = "lifecycle operation failed"

	logAttrOperation  = "operation"
	logAttrStatus     = "status"
	logAttrReason     = "reason"
	logAttrError      = "error"
	logAttrDurationMS = "duration_ms"
	logAttrMemberID   = "member_id"
	logAttrItemID     = "item_id"
	logAttrLoanID     = "loan_id"

	metricOperationDuration = "lifecycle_operation_duration_seconds"
	metricOperationCalls    = "lifecycle_operation_calls_total"
	metricRejections        = "lifecycle_rejections_total"

	spanNameOperation = "lifecycle.handle"

	statusSuccess  = "success"
	statusRejected = "rejected"
	statusError    = "error"

	operationBorrowItem          = "borrow_item"
	operationReturnItem          = "return_item"
	operationReturnItemOfMember  = "return_item_of_member"
	operationCheckEligibility    = "check_eligibility"
	operationMemberStanding      = "member_standing"
	operationSetItemAvailability = "set_item_availability"
	operationLoansOfMember       = "loans_of_member"
	operationOverdueLoans        = "overdue_loans"
)

// operationObserver carries the span, timing and log attributes of one service call.
type operationObserver struct {
	service   *Service
	ctx       context.Context
	operation string
	span      ledger.SpanContext
	start     time.Time
	attrs     []any
}

// observe starts observing an operation. attrs are key/value pairs added to every log line.
func (s *Service) observe(ctx context.Context, operation string, attrs ...any) (*operationObserver, context.Context) {
	observer := &operationObserver{
		service:   s,
		ctx:       ctx,
		operation: operation,
		start:     time.Now(),
		attrs:     attrs,
	}

	if s.tracingCollector != nil {
		spanAttrs := map[string]string{logAttrOperation: operation}
		for i := 0; i+1 < len(attrs); i += 2 {
			spanAttrs[fmt.Sprint(attrs[i])] = fmt.Sprint(attrs[i+1])
		}

		ctx, observer.span = s.tracingCollector.StartSpan(ctx, spanNameOperation, spanAttrs)
		observer.ctx = ctx
	}

	return observer, ctx
}

// finish classifies err, then logs, records metrics and ends the span accordingly.
// It returns the error the caller should hand out: business errors unchanged,
// everything else wrapped as *core.InfrastructureError.
func (o *operationObserver) finish(err error) error {
	duration := time.Since(o.start)

	switch {
	case err == nil:
		o.complete(statusSuccess, duration, nil)
		o.service.logInfo(o.ctx, logMsgCompleted, o.logArgs(statusSuccess, duration)...)

		return nil

	case core.IsBusinessError(err):
		reason, _ := core.ReasonOf(err)
		o.complete(statusRejected, duration, map[string]string{logAttrReason: reason.String()})
		o.service.incrementCounter(o.ctx, metricRejections, map[string]string{
			logAttrOperation: o.operation,
			logAttrReason:    reason.String(),
		})
		o.service.logWarn(o.ctx, logMsgRejected, append(o.logArgs(statusRejected, duration), logAttrReason, reason.String())...)

		return err

	default:
		err = core.NewInfrastructureError(o.operation, err)
		o.complete(statusError, duration, map[string]string{logAttrError: err.Error()})
		o.service.logError(o.ctx, logMsgFailed, append(o.logArgs(statusError, duration), logAttrError, err.Error())...)

		return err
	}
}

func (o *operationObserver) complete(status string, duration time.Duration, spanAttrs map[string]string) {
	labels := map[string]string{logAttrOperation: o.operation, logAttrStatus: status}
	o.service.recordDuration(o.ctx, metricOperationDuration, duration, labels)
	o.service.incrementCounter(o.ctx, metricOperationCalls, labels)

	if o.span == nil {
		return
	}

	attrs := map[string]string{logAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration))}
	for k, v := range spanAttrs {
		attrs[k] = v
	}

	o.service.tracingCollector.FinishSpan(o.span, status, attrs)
}

func (o *operationObserver) logArgs(status string, duration time.Duration) []any {
	args := []any{logAttrOperation, o.operation, logAttrStatus, status, logAttrDurationMS, toMilliseconds(duration)}

	return append(args, o.attrs...)
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.InfoContext(ctx, msg, args...)
	case s.logger != nil:
		s.logger.Info(msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.WarnContext(ctx, msg, args...)
	case s.logger != nil:
		s.logger.Warn(msg, args...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.ErrorContext(ctx, msg, args...)
	case s.logger != nil:
		s.logger.Error(msg, args...)
	}
}

func (s *Service) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metric, duration, labels)
}

func (s *Service) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
