package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mediatheque-go/lending/oteladapters"
)

func Test_SlogBridgeLogger_WithHandler_LogsAllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message", "operation", "get_item")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")
	logger.Info("plain info message")

	// assert
	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, `"operation":"get_item"`)
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
	assert.Contains(t, output, "plain info message")
}

func Test_SlogBridgeLogger_WithProvider_DoesNotPanicInsideSpan(t *testing.T) {
	// arrange
	logger := oteladapters.NewSlogBridgeLoggerWithProvider("test", noop.NewLoggerProvider())
	tracerProvider := sdktrace.NewTracerProvider()
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()
	ctx, span := tracerProvider.Tracer("test").Start(context.Background(), "lifecycle.handle")
	defer span.End()

	// act + assert
	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "lifecycle operation completed", "operation", "borrow_item")
	})
	assert.NotNil(t, logger.Slog())
}

func Test_OTelLogger_EmitsWithoutPanicking(t *testing.T) {
	// arrange
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))
	ctx := context.Background()

	// act + assert
	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "executed sql for: get_item", "duration_ms", 1.5, "rows", 3)
		logger.InfoContext(ctx, "info", "ok", true)
		logger.WarnContext(ctx, "odd args", 42, "value", "dangling")
		logger.ErrorContext(ctx, "error", "error", assert.AnError)
	})
}
