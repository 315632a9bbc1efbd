// Package otel provides OpenTelemetry metric exporter bindings for aegis
// counters.
//
// [NewExporter] registers an Int64ObservableCounter per aegis metric. A
// single callback reads [aegis.Engine.MetricsSnapshot] on each collection
// cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
