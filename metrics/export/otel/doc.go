// Package otel exports goSession metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter. The commit
// latency histogram becomes a "_bucket" gauge carrying an "le" attribute per
// bound plus a "_count" gauge. One callback reads
// [goSession.Manager.MetricsSnapshot] on each collection cycle; [WithAttributes]
// adds constant attributes to every observation.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate manager state.
package otel
