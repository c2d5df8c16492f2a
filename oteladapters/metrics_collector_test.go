package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mediatheque-go/lending/oteladapters"
)

func givenMetricsCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "failed to collect metrics")

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration_RecordsSecondsWithLabels(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()

	// act
	collector.RecordDuration("ledger_query_duration_seconds", 150*time.Millisecond, map[string]string{
		"operation": "get_item",
		"status":    "success",
	})

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), "ledger_query_duration_seconds")
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)

	operation, ok := dataPoint.Attributes.Value(attribute.Key("operation"))
	assert.True(t, ok)
	assert.Equal(t, "get_item", operation.AsString())
}

func Test_MetricsCollector_IncrementCounterContext_SumsPerLabelSet(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()
	ctx := context.Background()

	// act
	collector.IncrementCounterContext(ctx, "lifecycle_rejections_total", map[string]string{"reason": "member_blocked"})
	collector.IncrementCounterContext(ctx, "lifecycle_rejections_total", map[string]string{"reason": "member_blocked"})
	collector.IncrementCounter("lifecycle_rejections_total", map[string]string{"reason": "member_overdue"})

	// assert
	sum := findCounterMetric(t, collect(t, reader), "lifecycle_rejections_total")
	require.Len(t, sum.DataPoints, 2)

	totals := map[string]int64{}
	for _, dataPoint := range sum.DataPoints {
		reason, _ := dataPoint.Attributes.Value(attribute.Key("reason"))
		totals[reason.AsString()] = dataPoint.Value
	}
	assert.Equal(t, map[string]int64{"member_blocked": 2, "member_overdue": 1}, totals)
}

func Test_MetricsCollector_RecordValue_KeepsLastValue(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()

	// act
	collector.RecordValue("ledger_rows_returned", 3, map[string]string{"operation": "list_items"})
	collector.RecordValueContext(context.Background(), "ledger_rows_returned", 7, map[string]string{"operation": "list_items"})

	// assert
	gauge := findGaugeMetric(t, collect(t, reader), "ledger_rows_returned")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 7.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	// arrange
	collector, reader := givenMetricsCollector()
	wg := sync.WaitGroup{}

	// act
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("standing_cache_lookups_total", map[string]string{"result": "hit"})
			collector.RecordDuration("lifecycle_operation_duration_seconds", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	// assert
	sum := findCounterMetric(t, collect(t, reader), "standing_cache_lookups_total")
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(32), sum.DataPoints[0].Value)
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Histogram[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				return h
			}
		}
	}

	t.Fatalf("histogram metric %s not found", name)

	return metricdata.Histogram[float64]{}
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				return s
			}
		}
	}

	t.Fatalf("counter metric %s not found", name)

	return metricdata.Sum[int64]{}
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Gauge[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[float64]); ok && m.Name == name {
				return g
			}
		}
	}

	t.Fatalf("gauge metric %s not found", name)

	return metricdata.Gauge[float64]{}
}
