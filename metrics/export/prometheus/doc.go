// Package prometheus exposes goSession counters as a Prometheus collector.
//
// [NewCollector] wraps anything with MetricsSnapshot and AuditDropped (a
// *goSession.Client satisfies both). Register it on your own registry, or
// use [Collector.Handler] which serves it from a private one.
//
// # What this package must NOT do
//
//   - Register into prometheus.DefaultRegisterer.
//   - Mutate client state.
package prometheus
