// Package otel publishes goSession engine metrics through OpenTelemetry
// observable instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per cumulative latency bucket. One callback reads
// [goSession.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
