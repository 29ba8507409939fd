// Package prometheus exposes goSession engine metrics as a
// prometheus.Collector.
//
// [NewCollector] reads [goSession.Engine.MetricsSnapshot] on every scrape.
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_session_resolve_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     collector or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
