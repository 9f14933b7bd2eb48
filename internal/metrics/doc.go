// Package metrics provides observability hooks for mountrewrite runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics need no nil checks at call sites:
//
//	r := runner.New(rw, runner.Options{Recorder: metrics.NoopRecorder{}})
//
// When a textfile path is configured the CLI swaps in a PrometheusRecorder
// backed by its own registry and writes the text exposition after the run,
// for collection by node_exporter's textfile collector:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	...
//	_ = metrics.WriteTextfile(path, reg)
package metrics
