// Package metrics records build observability data.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so call sites never check for nil. When a metrics textfile is
// configured the pipeline swaps in a PrometheusRecorder and writes its
// registry to disk after the build, in the node_exporter textfile format.
package metrics
