// Package internaldefs holds the metric names shared by the exporters.
//
// The Prometheus and OTel exporters both read from these tables so a
// renamed counter changes everywhere at once. Bucket bounds come from
// goSession.HistogramBoundsSeconds.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
