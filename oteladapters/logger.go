package oteladapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/mediatheque-go/lending/ledger"
)

// SlogBridgeLogger implements ledger.ContextualLogger and ledger.Logger on a *slog.Logger.
// Created with NewSlogBridgeLogger it writes through the OpenTelemetry slog bridge,
// so records carry the trace and span id of the context they are logged with.
type SlogBridgeLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger creates a logger on the global OpenTelemetry LoggerProvider.
func NewSlogBridgeLogger(name string) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name)}
}

// NewSlogBridgeLoggerWithProvider creates a logger on the given LoggerProvider.
func NewSlogBridgeLoggerWithProvider(name string, provider log.LoggerProvider) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider))}
}

// NewSlogBridgeLoggerWithHandler wraps a plain slog.Handler. Records are not bridged to OpenTelemetry.
func NewSlogBridgeLoggerWithHandler(handler slog.Handler) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: slog.New(handler)}
}

// Slog returns the underlying *slog.Logger.
func (l *SlogBridgeLogger) Slog() *slog.Logger {
	return l.logger
}

func (l *SlogBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogBridgeLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogBridgeLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogBridgeLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

var (
	_ ledger.ContextualLogger = (*SlogBridgeLogger)(nil)
	_ ledger.Logger           = (*SlogBridgeLogger)(nil)
)

// OTelLogger implements ledger.ContextualLogger on the OpenTelemetry logs API directly.
// Use it when log records should go to an OpenTelemetry pipeline without slog in between.
type OTelLogger struct {
	logger log.Logger
}

// NewOTelLogger creates a contextual logger emitting to logger.
func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.Emit(ctx, buildRecord(log.SeverityDebug, "DEBUG", msg, args...))
}

func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.Emit(ctx, buildRecord(log.SeverityInfo, "INFO", msg, args...))
}

func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.Emit(ctx, buildRecord(log.SeverityWarn, "WARN", msg, args...))
}

func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.Emit(ctx, buildRecord(log.SeverityError, "ERROR", msg, args...))
}

var _ ledger.ContextualLogger = (*OTelLogger)(nil)

// buildRecord turns slog-style key/value args into a log record. Pairs without a string key are skipped.
func buildRecord(severity log.Severity, severityText string, msg string, args ...any) log.Record {
	record := log.Record{}
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetSeverityText(severityText)
	record.SetBody(log.StringValue(msg))

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		record.AddAttributes(keyValue(key, args[i+1]))
	}

	return record
}

func keyValue(key string, value any) log.KeyValue {
	switch v := value.(type) {
	case string:
		return log.String(key, v)
	case bool:
		return log.Bool(key, v)
	case int:
		return log.Int(key, v)
	case int64:
		return log.Int64(key, v)
	case float64:
		return log.Float64(key, v)
	case time.Duration:
		return log.String(key, v.String())
	case fmt.Stringer:
		return log.String(key, v.String())
	case error:
		return log.String(key, v.Error())
	default:
		return log.String(key, slog.AnyValue(v).String())
	}
}
