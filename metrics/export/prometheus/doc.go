// Package prometheus provides Prometheus collectors for aegis metrics.
//
// [NewExporter] accepts an [aegis.Engine] and exposes an [http.Handler] that
// renders every aegis counter in Prometheus exposition format, backed by a
// private registry. Counter names are prefixed aegis_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
