// Package oteladapters implements the observability interfaces of package ledger on
// top of OpenTelemetry, so that the SQL engine, the standing cache and the lifecycle
// service can report to any OpenTelemetry backend without depending on it directly.
//
//	tracer := tracerProvider.Tracer("lending")
//	meter := meterProvider.Meter("lending")
//
//	service, err := lifecycle.NewService(store,
//		lifecycle.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		lifecycle.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		lifecycle.WithContextualLogger(oteladapters.NewSlogBridgeLogger("lending")),
//	)
package oteladapters
