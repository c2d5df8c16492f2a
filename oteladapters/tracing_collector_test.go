package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mediatheque-go/lending/oteladapters"
	"github.com/mediatheque-go/lending/testutil/helper"
)

func givenTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func Test_TracingCollector_RecordsStartAndFinishAttributes(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	ctx, span := collector.StartSpan(context.Background(), "ledger.query", map[string]string{"operation": "get_item"})
	collector.FinishSpan(span, "success", map[string]string{"row_count": "1"})

	// assert
	assert.NotNil(t, ctx)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.query", spans[0].Name)
	assertSpanHasAttribute(t, spans[0], "operation", "get_item")
	assertSpanHasAttribute(t, spans[0], "row_count", "1")
	assertSpanHasAttribute(t, spans[0], "outcome", "success")
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func Test_TracingCollector_MapsStatuses(t *testing.T) {
	testCases := []struct {
		status   string
		expected codes.Code
	}{
		{status: "success", expected: codes.Ok},
		{status: "error", expected: codes.Error},
		{status: "canceled", expected: codes.Error},
		{status: "rejected", expected: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			// arrange
			collector, exporter := givenTracingCollector()
			_, span := collector.StartSpan(context.Background(), "lifecycle.handle", nil)

			// act
			collector.FinishSpan(span, tc.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expected, spans[0].Status.Code)
			assertSpanHasAttribute(t, spans[0], "outcome", tc.status)
		})
	}
}

func Test_TracingCollector_NestsSpansThroughContext(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	ctx, parent := collector.StartSpan(context.Background(), "lifecycle.handle", nil)
	_, child := collector.StartSpan(ctx, "ledger.transaction", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "ledger.transaction", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func Test_TracingCollector_IgnoresForeignSpanContexts(t *testing.T) {
	collector, exporter := givenTracingCollector()

	collector.FinishSpan(&helper.SpySpanContext{}, "success", nil)

	assert.Empty(t, exporter.GetSpans())
}

func Test_OTelSpanContext_AddAttribute(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()
	_, span := collector.StartSpan(context.Background(), "ledger.transaction", nil)

	// act
	span.AddAttribute("db.dialect", "sqlite3")
	collector.FinishSpan(span, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "db.dialect", "sqlite3")
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == expectedValue {
			return
		}
	}

	assert.Failf(t, "missing span attribute", "span should have attribute %s=%s", key, expectedValue)
}
