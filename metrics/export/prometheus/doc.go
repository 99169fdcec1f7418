// Package prometheus renders storefront engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [storefront.Engine] and exposes an
// [http.Handler] for GET /metrics. Counter names are prefixed
// storefront_*_total; the single histogram is
// storefront_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
