// Package prometheus provides Prometheus collectors for goPerm metrics.
//
// [NewPrometheusExporter] accepts a [goPerm.Engine] and exposes an [http.Handler]
// that renders all goPerm counters and histograms in Prometheus text exposition
// format. Counter names are prefixed goperm_*_total; the single histogram is
// goperm_resolve_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
