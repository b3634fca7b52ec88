// Package otel binds goSession counters to OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter, one
// Int64ObservableGauge per histogram bucket plus count, and a
// Float64ObservableGauge for the histogram sum. A single callback reads
// MetricsSnapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
