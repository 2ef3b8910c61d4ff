// Package prometheus exposes goSession metrics as a client_golang collector.
//
// [NewPrometheusExporter] wraps a [goSession.Manager]; the exporter registers
// itself on a private registry served by [PrometheusExporter.Handler], and can
// also be registered on a caller's registry. Counter names are gosession_*_total;
// the single histogram is gosession_commit_latency_seconds.
//
// # What this package must NOT do
//
//   - Register on the global Prometheus registry.
//   - Mutate manager state.
package prometheus
